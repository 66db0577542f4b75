package cpd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedReport matches any report that is not well-formed XML.
var ErrMalformedReport = errors.New("malformed report")

// MalformedReportError carries the raw report text for diagnosis.
type MalformedReportError struct {
	Raw string
	Err error
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("could not process the report generated by phpcpd: %v", e.Err)
}

func (e *MalformedReportError) Unwrap() error { return e.Err }

func (e *MalformedReportError) Is(target error) bool { return target == ErrMalformedReport }

// Occurrence is one place a duplicated fragment appears.
type Occurrence struct {
	File string
	Line int
}

// Finding is one duplication block from the report.
type Finding struct {
	Fragment    string
	Lines       int // length of the duplicated span
	Tokens      int
	Occurrences []Occurrence
}

// PMD-CPD report layout.
type pmdReport struct {
	Duplications []pmdDuplication `xml:"duplication"`
}

type pmdDuplication struct {
	Lines        string    `xml:"lines,attr"`
	Tokens       string    `xml:"tokens,attr"`
	Files        []pmdFile `xml:"file"`
	CodeFragment string    `xml:"codefragment"`
}

type pmdFile struct {
	Path string `xml:"path,attr"`
	Line string `xml:"line,attr"`
}

// ParseReport decodes a PMD-CPD XML report. A well-formed document with no
// duplication elements yields no findings and no error; anything that is
// not a single well-formed XML document yields a *MalformedReportError.
func ParseReport(data []byte) ([]Finding, error) {
	malformed := func(err error) error {
		return &MalformedReportError{Raw: string(data), Err: err}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))

	root, err := rootElement(dec)
	if err != nil {
		return nil, malformed(err)
	}

	var report pmdReport
	if err := dec.DecodeElement(&report, &root); err != nil {
		return nil, malformed(err)
	}
	if err := trailingContent(dec); err != nil {
		return nil, malformed(err)
	}

	findings := make([]Finding, 0, len(report.Duplications))
	for _, d := range report.Duplications {
		f := Finding{
			Fragment: d.CodeFragment,
			Lines:    leadingInt(d.Lines),
			Tokens:   leadingInt(d.Tokens),
		}
		for _, file := range d.Files {
			f.Occurrences = append(f.Occurrences, Occurrence{
				File: file.Path,
				Line: leadingInt(file.Line),
			})
		}
		findings = append(findings, f)
	}
	return findings, nil
}

// rootElement skips the prolog and returns the document element.
func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return xml.StartElement{}, errors.New("empty document")
		}
		if err != nil {
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, errors.New("text before document element")
			}
		}
	}
}

// trailingContent rejects anything but whitespace, comments and processing
// instructions after the document element.
func trailingContent(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return errors.New("extra content at the end of the document")
			}
		default:
			return errors.New("extra content at the end of the document")
		}
	}
}

// leadingInt reads an optionally signed integer prefix; no digits means 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		return -n
	}
	return n
}

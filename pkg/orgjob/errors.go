package orgjob

import (
	"fmt"
)

// TemplateStructureError is returned when a descriptor lacks one of the elements the merge needs
type TemplateStructureError struct {
	Parent  string
	Element string
}

func (e *TemplateStructureError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("no element <%s> found in the organisation job", e.Element)
	}
	return fmt.Sprintf("the element <%s> should have at least one child called <%s>", e.Parent, e.Element)
}

// XMLParseError is returned when a document cannot be parsed
type XMLParseError struct {
	Source string
	Err    error
}

func (e *XMLParseError) Error() string {
	return fmt.Sprintf("failed to parse XML from %s: %s", e.Source, e.Err.Error())
}

// Unwrap returns the underlying parse error
func (e *XMLParseError) Unwrap() error {
	return e.Err
}

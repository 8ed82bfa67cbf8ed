package types

import "fmt"

// Directive selects which follow-up prompt is composed after a task
// completes. Review and Document use fixed templates; Custom carries
// user-provided text.
type Directive string

const (
	DirectiveReview   Directive = "review"
	DirectiveDocument Directive = "document"
	DirectiveCustom   Directive = "custom"
)

// AllDirectives returns all valid directives
func AllDirectives() []Directive {
	return []Directive{
		DirectiveReview,
		DirectiveDocument,
		DirectiveCustom,
	}
}

// IsValid checks if the directive is valid
func (d Directive) IsValid() bool {
	switch d {
	case DirectiveReview,
		DirectiveDocument,
		DirectiveCustom:
		return true
	default:
		return false
	}
}

// RequiresPrompt reports whether the directive needs caller-supplied text.
func (d Directive) RequiresPrompt() bool {
	return d == DirectiveCustom
}

// String returns the string representation of the directive
func (d Directive) String() string {
	return string(d)
}

// ParseDirective parses a string into a Directive
func ParseDirective(s string) (Directive, error) {
	directive := Directive(s)
	if !directive.IsValid() {
		return "", fmt.Errorf("invalid directive: %s", s)
	}
	return directive, nil
}

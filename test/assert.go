package test

import (
	"testing"

	"github.com/onsi/gomega"
	matcher "github.com/panta/go-json-matcher"
)

type Assertions struct {
	internal *gomega.WithT
}

func NewAssertions(t *testing.T) Assertions {
	return Assertions{internal: gomega.NewWithT(t)}
}

func (a Assertions) Nil(err error, msg ...any) {
	a.internal.Expect(err).To(gomega.BeNil(), msg...)
}

func (a Assertions) NotNil(values ...any) {
	for _, value := range values {
		a.internal.Expect(value).To(gomega.Not(gomega.BeNil()))
	}
}

func (a Assertions) NotEmpty(value string) {
	a.internal.Expect(value).To(gomega.Not(gomega.BeEmpty()))
}

func (a Assertions) True(value bool, msg ...any) {
	a.internal.Expect(value).To(gomega.BeTrue(), msg...)
}

func (a Assertions) False(value bool, msg ...any) {
	a.internal.Expect(value).To(gomega.BeFalse(), msg...)
}

func (a Assertions) Equals(value any, expected any, msg ...any) {
	a.internal.Expect(value).To(gomega.Equal(expected), msg...)
}

func (a Assertions) NotEqual(value any, unexpected any) {
	a.internal.Expect(value).NotTo(gomega.Equal(unexpected))
}

func (a Assertions) Contains(value string, substr string) {
	a.internal.Expect(value).To(gomega.ContainSubstring(substr))
}

func (a Assertions) Len(value any, length int) {
	a.internal.Expect(value).To(gomega.HaveLen(length))
}

func (a Assertions) MatchJson(value string, pattern string) {
	a.internal.Expect(value).To(gomega.MatchJSON(pattern))
}

// MatchShape checks value against a go-json-matcher pattern ("#string", "#number", ...).
func (a Assertions) MatchShape(value string, pattern string) {
	match, err := matcher.JSONStringMatches(value, pattern)
	a.internal.Expect(err).To(gomega.BeNil())
	a.internal.Expect(match).To(gomega.BeTrue(), "value %s does not match %s", value, pattern)
}

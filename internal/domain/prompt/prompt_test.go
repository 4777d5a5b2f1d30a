package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/ragrec/internal/domain"
)

func allSlots() map[string]string {
	return map[string]string{
		SlotProfile: "I love sci-fi",
		SlotInput:   "Recommend a movie",
		SlotContext: "Inception: Dream heist with AI",
	}
}

func TestBuild_Substitutes(t *testing.T) {
	tpl, err := New("P={profile} I={input} C={context}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := tpl.Build(allSlots())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "P=I love sci-fi I=Recommend a movie C=Inception: Dream heist with AI"
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_NoRecursiveSubstitution(t *testing.T) {
	tpl, _ := New("{input}|{context}")
	values := allSlots()
	values[SlotInput] = "{context}"

	got, err := tpl.Build(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "{context}|Inception: Dream heist with AI" {
		t.Errorf("slot values must be inserted verbatim, got %q", got)
	}
}

func TestBuild_EscapedBraces(t *testing.T) {
	tpl, err := New(`{{"q": "{input}"}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := tpl.Build(allSlots())
	if got != `{"q": "Recommend a movie"}` {
		t.Errorf("Build() = %q", got)
	}
}

func TestBuild_MissingSlot(t *testing.T) {
	tpl, _ := New("{profile}")
	values := allSlots()
	delete(values, SlotContext)

	_, err := tpl.Build(values)
	if !errors.Is(err, domain.ErrTemplate) {
		t.Fatalf("expected ErrTemplate, got %v", err)
	}
	if !strings.Contains(err.Error(), "context") {
		t.Errorf("error should name the slot, got %q", err.Error())
	}
}

func TestNew_Invalid(t *testing.T) {
	for _, text := range []string{
		"{unknown}",
		"open {profile",
		"stray } brace",
		"{}",
	} {
		if _, err := New(text); !errors.Is(err, domain.ErrTemplate) {
			t.Errorf("New(%q): expected ErrTemplate, got %v", text, err)
		}
	}
}

func TestDefault_ProducesJSONExample(t *testing.T) {
	got, err := Default().Build(allSlots())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"User profile: I love sci-fi",
		"User query: Recommend a movie",
		"Inception: Dream heist with AI",
		`{"title": "Inception", "score": 0.95`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("default prompt missing %q", want)
		}
	}
	if strings.Contains(got, "{{") {
		t.Error("escaped braces must be unescaped")
	}
}

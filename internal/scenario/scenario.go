package scenario

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Step type constants
type StepType string

const (
	StepNavigate        StepType = "navigate"
	StepWaitVisible     StepType = "wait_visible"
	StepWaitHidden      StepType = "wait_hidden"
	StepWaitDelay       StepType = "wait_delay"
	StepClick           StepType = "click"
	StepHover           StepType = "hover"
	StepInput           StepType = "type"
	StepEval            StepType = "eval"
	StepScreenshot      StepType = "screenshot"
	StepExpectVisible   StepType = "expect_visible"
	StepExpectHidden    StepType = "expect_hidden"
	StepExpectAttribute StepType = "expect_attribute"
	StepExpectEval      StepType = "expect_eval"
	StepCheckVisible    StepType = "check_visible"
)

// Duration is a time.Duration that reads and writes as "10s" in YAML and JSON.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Route maps a URL glob to a canned response.
type Route struct {
	Pattern     string            `json:"pattern" yaml:"pattern"`
	Status      int               `json:"status,omitempty" yaml:"status,omitempty"`
	ContentType string            `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Body        string            `json:"body,omitempty" yaml:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Step is one browser interaction or assertion.
type Step struct {
	Type      StepType `json:"type" yaml:"type"`
	Selector  string   `json:"selector,omitempty" yaml:"selector,omitempty"`
	Role      string   `json:"role,omitempty" yaml:"role,omitempty"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Text      string   `json:"text,omitempty" yaml:"text,omitempty"`
	Attribute string   `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Value     string   `json:"value,omitempty" yaml:"value,omitempty"`
	Expect    string   `json:"expect,omitempty" yaml:"expect,omitempty"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	FullPage  bool     `json:"full_page,omitempty" yaml:"full_page,omitempty"`
}

// HasLocator reports whether the step names an element.
func (s *Step) HasLocator() bool {
	return s.Selector != "" || s.Role != "" || s.Text != ""
}

// Describe renders the step for log lines and failure messages.
func (s *Step) Describe() string {
	switch {
	case s.Selector != "":
		return fmt.Sprintf("%s %s", s.Type, s.Selector)
	case s.Role != "":
		return fmt.Sprintf("%s role=%s[name=%q]", s.Type, s.Role, s.Name)
	case s.Text != "":
		return fmt.Sprintf("%s text=%q", s.Type, s.Text)
	case s.Value != "":
		return fmt.Sprintf("%s %s", s.Type, s.Value)
	}
	return string(s.Type)
}

// Scenario is a declarative UI check: routes to mock, a page to open and steps to run.
type Scenario struct {
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	URL             string   `json:"url" yaml:"url"`
	Routes          []Route  `json:"routes,omitempty" yaml:"routes,omitempty"`
	Steps           []Step   `json:"steps" yaml:"steps"`
	Screenshot      string   `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	ErrorScreenshot string   `json:"error_screenshot,omitempty" yaml:"error_screenshot,omitempty"`
	Strict          bool     `json:"strict,omitempty" yaml:"strict,omitempty"`
	Settle          Duration `json:"settle,omitempty" yaml:"settle,omitempty"`
	Timeout         Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Validate checks the scenario before any browser is launched.
func (sc *Scenario) Validate() error {
	if strings.TrimSpace(sc.Name) == "" {
		return errors.New("scenario name is required")
	}
	if strings.TrimSpace(sc.URL) == "" {
		return fmt.Errorf("scenario %s: url is required", sc.Name)
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %s: at least one step is required", sc.Name)
	}
	for i, r := range sc.Routes {
		if r.Pattern == "" {
			return fmt.Errorf("scenario %s: route %d: pattern is required", sc.Name, i)
		}
		if _, err := glob.Compile(r.Pattern, '/'); err != nil {
			return fmt.Errorf("scenario %s: route %d: invalid pattern %q: %w", sc.Name, i, r.Pattern, err)
		}
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			return fmt.Errorf("scenario %s: route %d: invalid status %d", sc.Name, i, r.Status)
		}
	}
	for i := range sc.Steps {
		if err := sc.Steps[i].Validate(); err != nil {
			return fmt.Errorf("scenario %s: step %d: %w", sc.Name, i, err)
		}
	}
	return nil
}

// Validate checks the fields each step type needs.
func (s *Step) Validate() error {
	locators := 0
	for _, set := range []bool{s.Selector != "", s.Role != "", s.Text != ""} {
		if set {
			locators++
		}
	}
	if locators > 1 {
		return fmt.Errorf("%s: use only one of selector, role or text", s.Type)
	}
	if s.Name != "" && s.Role == "" {
		return fmt.Errorf("%s: name requires role", s.Type)
	}

	switch s.Type {
	case StepNavigate, StepEval, StepScreenshot:
		if s.Value == "" {
			return fmt.Errorf("%s action requires a value", s.Type)
		}
	case StepWaitDelay:
		if _, err := time.ParseDuration(s.Value); err != nil {
			return fmt.Errorf("invalid duration value for wait_delay '%s': %w", s.Value, err)
		}
	case StepWaitVisible, StepWaitHidden, StepClick, StepHover,
		StepExpectVisible, StepExpectHidden, StepCheckVisible:
		if !s.HasLocator() {
			return fmt.Errorf("%s action requires a selector, role or text", s.Type)
		}
	case StepInput:
		if !s.HasLocator() {
			return fmt.Errorf("type action requires a selector, role or text")
		}
		if s.Value == "" {
			return fmt.Errorf("type action requires a value")
		}
	case StepExpectAttribute:
		if !s.HasLocator() || s.Attribute == "" {
			return fmt.Errorf("expect_attribute action requires a locator and an attribute")
		}
		if s.Expect == "" {
			return fmt.Errorf("expect_attribute action requires an expected value")
		}
	case StepExpectEval:
		if s.Value == "" {
			return fmt.Errorf("expect_eval action requires script code in value")
		}
	default:
		return fmt.Errorf("unknown step type: %s", s.Type)
	}
	return nil
}

package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/copyleftdev/uiverify/internal/dom"
	"github.com/copyleftdev/uiverify/internal/scenario"
)

// ActionEnv carries what step actions need beyond the step itself.
type ActionEnv struct {
	Resolver  *scenario.Resolver
	OutputDir string
	// Screenshots and Notes collect paths written and soft-check observations.
	Screenshots *[]string
	Notes       *[]string
}

// OutputPath places relative paths under the output dir.
func (e *ActionEnv) OutputPath(p string) string {
	if p == "" || filepath.IsAbs(p) || e.OutputDir == "" {
		return p
	}
	return filepath.Join(e.OutputDir, p)
}

func locatorFor(step scenario.Step) dom.Locator {
	return dom.Locator{CSS: step.Selector, Role: step.Role, Name: step.Name, Text: step.Text}
}

// GenerateAction translates a scenario step into a chromedp Action.
func GenerateAction(step scenario.Step, env *ActionEnv) (chromedp.Action, error) {
	if err := step.Validate(); err != nil {
		return nil, err
	}
	loc := locatorFor(step)

	switch step.Type {
	case scenario.StepNavigate:
		target, err := env.Resolver.URL(step.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve navigate url %q: %w", step.Value, err)
		}
		return dom.NavigateAction(target), nil

	case scenario.StepWaitVisible:
		return dom.WaitVisibleAction(loc), nil

	case scenario.StepWaitHidden:
		return dom.WaitHiddenAction(loc), nil

	case scenario.StepWaitDelay:
		dur, err := time.ParseDuration(step.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid duration value for wait_delay '%s': %w", step.Value, err)
		}
		return chromedp.Sleep(dur), nil

	case scenario.StepClick:
		return dom.ClickAction(loc), nil

	case scenario.StepHover:
		return chromedp.Tasks{dom.WaitVisibleAction(loc), dom.HoverAction(loc)}, nil

	case scenario.StepInput:
		text, err := env.Resolver.Resolve(step.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve type value: %w", err)
		}
		return dom.TypeAction(loc, text), nil

	case scenario.StepEval:
		script, err := env.Resolver.Resolve(step.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve script: %w", err)
		}
		var discard interface{}
		return dom.RunScriptAction(script, &discard), nil

	case scenario.StepScreenshot:
		return dom.ScreenshotAction(env.OutputPath(step.Value), step.FullPage, env.Screenshots), nil

	case scenario.StepExpectVisible:
		return dom.WaitVisibleAction(loc), nil

	case scenario.StepExpectHidden:
		return dom.WaitHiddenAction(loc), nil

	case scenario.StepExpectAttribute:
		return dom.ExpectAttributeAction(loc, step.Attribute, step.Expect), nil

	case scenario.StepExpectEval:
		return dom.ExpectEvalAction(step.Value, step.Expect), nil

	case scenario.StepCheckVisible:
		var visible bool
		return chromedp.Tasks{
			dom.IsVisibleAction(loc, &visible),
			chromedp.ActionFunc(func(ctx context.Context) error {
				note := fmt.Sprintf("%s is visible", loc)
				if !visible {
					note = fmt.Sprintf("%s is NOT visible", loc)
				}
				if env.Notes != nil {
					*env.Notes = append(*env.Notes, note)
				}
				return nil
			}),
		}, nil

	default:
		return nil, fmt.Errorf("unknown step type: %s", step.Type)
	}
}

// stepTimeout picks the deadline for one step: its own timeout, else the
// default, stretched so a wait_delay always fits.
func stepTimeout(step scenario.Step, def time.Duration) time.Duration {
	timeout := step.Timeout.Std()
	if timeout <= 0 {
		timeout = def
	}
	if step.Type == scenario.StepWaitDelay {
		if d, err := time.ParseDuration(step.Value); err == nil && d+time.Second > timeout {
			timeout = d + time.Second
		}
	}
	return timeout
}

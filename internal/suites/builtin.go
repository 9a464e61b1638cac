// Package suites holds the built-in UI checks and the registry that merges
// them with scenarios loaded from YAML.
package suites

import (
	"time"

	"github.com/copyleftdev/uiverify/internal/scenario"
)

// Canned API payloads shared by the mocked scenarios.
const (
	movieJSON        = `{"title": "Test Movie", "poster_path": "/path.jpg", "genres": [{"name": "Action"}], "release_date": "2023-01-01"}`
	reviewsJSON      = `[{"_id": "r1", "user": "testuser", "rating": "Perfection", "text": "Great movie", "likes": 0, "createdAt": "2023-01-01"}]`
	currentUserJSON  = `{"username": "testuser", "id": "u1"}`
	loginJSON        = `{"_id": "u1", "username": "testuser", "email": "testuser@example.com", "token": "fake-token"}`
	popularMovieJSON = `[{"id": 1, "title": "Mock Movie 1", "poster_path": "/mock.jpg"}, {"id": 2, "title": "Mock Movie 2", "poster_path": "/mock2.jpg"}]`
)

func dur(d time.Duration) scenario.Duration { return scenario.Duration(d) }

// AuthPasswordToggle checks the show/hide password button on the sign-in form.
func AuthPasswordToggle() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "auth-password-toggle",
		Description: "Password visibility toggle on the auth page flips label and input type",
		URL:         "/auth",
		Strict:      true,
		Steps: []scenario.Step{
			{Type: scenario.StepWaitVisible, Selector: `input[type="password"]`},
			{Type: scenario.StepExpectVisible, Role: "button", Name: "Show password"},
			{Type: scenario.StepHover, Role: "button", Name: "Show password"},
			{Type: scenario.StepWaitDelay, Value: "1s"},
			{Type: scenario.StepScreenshot, Value: "auth_password_tooltip.png"},
			{Type: scenario.StepClick, Role: "button", Name: "Show password"},
			{Type: scenario.StepExpectVisible, Role: "button", Name: "Hide password"},
			{Type: scenario.StepExpectAttribute, Selector: "input#password", Attribute: "type", Expect: "text"},
		},
	}
}

// LoginFlow signs in against a mocked auth API and checks the stored token.
func LoginFlow() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "login-flow",
		Description: "Sign-in form stores the session token and leaves the auth page",
		URL:         "/auth",
		Routes: []scenario.Route{
			{Pattern: "**/api/auth/login", Body: loginJSON},
			{Pattern: "**/api/auth/me", Body: currentUserJSON},
		},
		Steps: []scenario.Step{
			{Type: scenario.StepWaitVisible, Selector: "input#email"},
			{Type: scenario.StepInput, Selector: "input#email", Value: scenario.PlaceholderUsername},
			{Type: scenario.StepInput, Selector: "input#password", Value: scenario.PlaceholderPassword},
			{Type: scenario.StepClick, Selector: `button[type="submit"]`},
			{Type: scenario.StepExpectEval, Value: "localStorage.getItem('token')", Expect: "fake-token"},
			{Type: scenario.StepExpectEval, Value: "window.location.pathname", Expect: "/"},
		},
		Screenshot: "login_flow.png",
	}
}

// DeleteReviewDialog opens the delete confirmation on a mocked movie page.
func DeleteReviewDialog() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "delete-review-dialog",
		Description: "Deleting your own review asks for confirmation in an alert dialog",
		URL:         "/",
		Routes: []scenario.Route{
			{Pattern: "**/api/movies/*", Body: movieJSON},
			// The review author must match the mocked user for the delete button to render.
			{Pattern: "**/api/reviews/*", Body: reviewsJSON},
			{Pattern: "**/api/auth/me", Body: currentUserJSON},
		},
		Steps: []scenario.Step{
			{Type: scenario.StepEval, Value: "localStorage.setItem('token', 'fake-token')"},
			{Type: scenario.StepNavigate, Value: "/movie/123"},
			{Type: scenario.StepWaitVisible, Selector: `button[aria-label="Delete review"]`, Timeout: dur(10 * time.Second)},
			{Type: scenario.StepClick, Selector: `button[aria-label="Delete review"]`},
			{Type: scenario.StepWaitVisible, Selector: `div[role="alertdialog"]`},
		},
		Screenshot:      "dialog_screenshot.png",
		ErrorScreenshot: "error_screenshot.png",
	}
}

// HomepageMovies renders the popular list from a mocked API.
func HomepageMovies() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "homepage-movies",
		Description: "Homepage lists popular movies from the API",
		URL:         "/",
		Routes: []scenario.Route{
			{Pattern: "**/api/movies/popular", Body: popularMovieJSON},
			{Pattern: "**/*.jpg", ContentType: "image/jpeg"},
		},
		Steps: []scenario.Step{
			{Type: scenario.StepWaitVisible, Text: "Mock Movie 1", Timeout: dur(10 * time.Second)},
		},
		Screenshot: "index.png",
	}
}

// HeaderTooltips hovers the header icons and captures their tooltips.
func HeaderTooltips() *scenario.Scenario {
	return &scenario.Scenario{
		Name:        "header-tooltips",
		Description: "Header icon links show tooltips on hover",
		URL:         "/",
		Settle:      dur(5 * time.Second),
		Steps: []scenario.Step{
			{Type: scenario.StepWaitVisible, Selector: "header"},
			{Type: scenario.StepHover, Selector: "a[href='/search']"},
			{Type: scenario.StepWaitDelay, Value: "1s"},
			{Type: scenario.StepScreenshot, Value: "tooltip_search.png"},
			{Type: scenario.StepCheckVisible, Text: "Search"},
			{Type: scenario.StepHover, Selector: "a[href='/notifications']"},
			{Type: scenario.StepWaitDelay, Value: "1s"},
			{Type: scenario.StepScreenshot, Value: "tooltip_notifications.png"},
		},
	}
}

// Builtin returns fresh copies of the built-in scenarios in a stable order.
func Builtin() []*scenario.Scenario {
	return []*scenario.Scenario{
		AuthPasswordToggle(),
		LoginFlow(),
		DeleteReviewDialog(),
		HomepageMovies(),
		HeaderTooltips(),
	}
}

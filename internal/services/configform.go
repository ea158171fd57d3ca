package services

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"unfuddle-plugin/internal/common"
	"unfuddle-plugin/internal/interfaces"
	"unfuddle-plugin/internal/models"

	"github.com/ternarybob/arbor"
)

// ConfigForm validates tracker credentials in two phases: a probe phase that
// authenticates against the tracker, and a query phase that fetches the
// dynamic project choices. The phases are separate so the live side effect
// stays explicit and the pure checks stay testable.
type ConfigForm struct {
	clients interfaces.ClientFactory
	logger  arbor.ILogger
}

func NewConfigForm(clients interfaces.ClientFactory, logger arbor.ILogger) *ConfigForm {
	return &ConfigForm{clients: clients, logger: logger}
}

// Validate checks the submitted credentials. A nil FormErrors return means
// the options are good to persist; the returned options carry normalized
// values plus the authenticated user's id as the default reporter.
func (f *ConfigForm) Validate(input models.OptionsInput, stored *models.StoredOptions) (*models.StoredOptions, *models.FormErrors) {
	errs := models.NewFormErrors()

	// A single trailing slash is stripped so request paths append cleanly.
	instanceURL := strings.TrimSuffix(strings.TrimSpace(input.InstanceURL), "/")
	username := strings.TrimSpace(input.Username)
	password := input.Password

	if instanceURL == "" {
		errs.AddField("instance_url", "Instance URL is required")
	}
	if username == "" {
		errs.AddField("username", "Username is required")
	}

	// An empty password on re-save reuses the stored one; no one wants to
	// retype it to change an unrelated field.
	if password == "" {
		if stored != nil && stored.Password != "" {
			password = stored.Password
		} else {
			errs.AddField("password", "A password is required")
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}

	client := f.clients(models.ClientConfig{
		InstanceURL: instanceURL,
		Username:    username,
		Password:    password,
	})

	probe := client.CurrentUser()
	switch {
	case probe.StatusCode == http.StatusUnauthorized || probe.StatusCode == http.StatusForbidden:
		errs.AddField("username", "Username might be incorrect")
		errs.AddField("password", "Password might be incorrect")
		errs.AddForm(fmt.Sprintf("Unable to connect to Unfuddle: %d, if you have tried and "+
			"failed multiple times you may have to enter a CAPTCHA in Unfuddle to re-enable "+
			"API logins.", probe.StatusCode))
		return nil, errs

	case probe.StatusCode == http.StatusInternalServerError || !probe.Usable():
		errs.AddForm("Unable to connect to Unfuddle: Bad Response")
		return nil, errs

	case probe.StatusCode != http.StatusOK:
		errs.AddForm(fmt.Sprintf("Unable to connect to Unfuddle: %d", probe.StatusCode))
		return nil, errs
	}

	opts := &models.StoredOptions{
		InstanceURL:      instanceURL,
		Username:         username,
		Password:         password,
		DefaultProjectID: strings.TrimSpace(input.DefaultProjectID),
	}

	var current models.Person
	if err := probe.DecodeInto(&current); err == nil && current.ID != 0 {
		opts.DefaultReporterID = strconv.Itoa(current.ID)
	}

	return opts, nil
}

// Choices is the query phase: it fetches the project list and authenticated
// user for the dynamic configuration fields. An unreadable project list is a
// configuration error distinct from validation failures.
func (f *ConfigForm) Choices(client interfaces.TrackerClient) (*models.ConfigChoices, error) {
	projectsResp := client.Projects()
	if projectsResp.StatusCode != http.StatusOK {
		return nil, common.NewConfigurationError("projects_unavailable",
			fmt.Sprintf("unable to list tracker projects: status %d", projectsResp.StatusCode))
	}

	var projects []models.Project
	if err := projectsResp.DecodeInto(&projects); err != nil {
		return nil, common.NewConfigurationError("projects_unreadable",
			"unable to read tracker project list").WithCause(err)
	}

	choices := &models.ConfigChoices{}
	for _, p := range projects {
		choices.Projects = append(choices.Projects,
			models.NamedChoice(p.ID, fmt.Sprintf("%s (%d)", p.Title, p.ID)))
	}

	// Degraded mode: with no visible project the selection fields are
	// withheld entirely and configuration cannot complete.
	if len(choices.Projects) == 0 {
		return choices, nil
	}

	var current models.Person
	if err := client.CurrentUser().DecodeInto(&current); err == nil && current.ID != 0 {
		choices.DefaultReporterID = strconv.Itoa(current.ID)
	}

	return choices, nil
}

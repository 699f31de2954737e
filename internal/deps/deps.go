package deps

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary a component shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement resolved on PATH.
type Status struct {
	Requirement
	Path      string
	Available bool
	Detail    string
}

// CheckBinaries resolves each requirement and reports availability in order.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		switch path, err := lookup(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Path = path
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}

// Require returns an error naming every non-optional requirement that is missing.
func Require(requirements ...Requirement) error {
	var missing []string
	for _, status := range CheckBinaries(requirements) {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.New("missing dependencies: " + strings.Join(missing, ", "))
}

func lookup(command string) (string, error) {
	if command == "" {
		return "", exec.ErrNotFound
	}
	return exec.LookPath(command)
}

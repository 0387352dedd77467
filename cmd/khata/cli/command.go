package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/khata-app/khata/jobs"
)

// Command is a parsed khata invocation.
type Command struct {
	Name string
	Args []string
}

const (
	CmdServe   = "serve"
	CmdMigrate = "migrate"
	CmdUserAdd = "useradd"
	CmdJobs    = "jobs"
)

// Usage is printed for unknown commands.
const Usage = `usage:
  khata [serve]
  khata migrate up|down|version
  khata useradd <email> <password>
  khata jobs trigger collections:due_scan [YYYY-MM-DD]
  khata jobs trigger reports:warmup
  khata jobs stats`

// Parse validates args (without the program name).
func Parse(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{Name: CmdServe}, nil
	}
	name, rest := args[0], args[1:]
	switch name {
	case CmdServe:
		return Command{Name: CmdServe}, nil
	case CmdMigrate:
		if len(rest) != 1 {
			return Command{}, errors.New("migrate: expected up, down or version")
		}
		switch rest[0] {
		case "up", "down", "version":
			return Command{Name: CmdMigrate, Args: rest}, nil
		}
		return Command{}, fmt.Errorf("migrate: unknown direction %q", rest[0])
	case CmdUserAdd:
		if len(rest) != 2 || !strings.Contains(rest[0], "@") {
			return Command{}, errors.New("useradd: expected <email> <password>")
		}
		return Command{Name: CmdUserAdd, Args: rest}, nil
	case CmdJobs:
		if len(rest) == 1 && rest[0] == "stats" {
			return Command{Name: CmdJobs, Args: rest}, nil
		}
		if len(rest) >= 2 && rest[0] == "trigger" {
			switch rest[1] {
			case jobs.TaskCollectionsDueScan:
				if len(rest) > 3 {
					break
				}
				return Command{Name: CmdJobs, Args: rest}, nil
			case jobs.TaskReportsWarmup:
				if len(rest) != 2 {
					break
				}
				return Command{Name: CmdJobs, Args: rest}, nil
			}
		}
		return Command{}, errors.New("jobs: expected stats or trigger <job>")
	}
	return Command{}, fmt.Errorf("unknown command %q", name)
}

package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	WorkflowField = "workflow"
	NodeField     = "node"
	SessionField  = "session"
	CompanyField  = "company"
	QuestionField = "question"
	BranchField   = "branch"
	ToolField     = "tool"
	ActorIDField  = "actor"
)

func NewGlobal(level string, pretty bool) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(l)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

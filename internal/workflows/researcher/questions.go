package researcher

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dsa-copilot/pkg/prompts"
)

// Question is one row of the research question table.
type Question struct {
	Prompt   string `yaml:"prompt"`
	Question string `yaml:"question"`
	Section  string `yaml:"section"`
}

// QuestionTable is the full set of research questions for a run. Loaded once
// at startup and treated as immutable afterwards.
type QuestionTable struct {
	Questions []Question `yaml:"questions"`
}

// LoadQuestions reads the question table from a YAML file and validates that
// every row references a known prompt variant. An unknown variant is a
// configuration error surfaced at load time, before any branch is dispatched.
func LoadQuestions(path string) (*QuestionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question table: %w", err)
	}

	var table QuestionTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse question table: %w", err)
	}
	if len(table.Questions) == 0 {
		return nil, fmt.Errorf("question table %s is empty", path)
	}
	for i, q := range table.Questions {
		if q.Question == "" {
			return nil, fmt.Errorf("question %d has no text", i)
		}
		if !prompts.ResearchVariantExists(q.Prompt) {
			return nil, fmt.Errorf("question %d references unknown prompt variant %q", i, q.Prompt)
		}
	}
	return &table, nil
}

// SubTasks expands the table into dispatchable sub-tasks, one per row.
func (t *QuestionTable) SubTasks() []SubTask {
	tasks := make([]SubTask, len(t.Questions))
	for i, q := range t.Questions {
		tasks[i] = SubTask{
			Index:         i,
			Question:      q.Question,
			Section:       q.Section,
			PromptVariant: q.Prompt,
		}
	}
	return tasks
}

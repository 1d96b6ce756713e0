package publish

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/CTAG07/sitekit/pkg/templating"
)

// Task is one entry of the tasks state file.
type Task struct {
	Text      string `json:"text"`
	Note      string `json:"note,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	DueAt     string `json:"dueAt,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

// TaskView is a task prepared for rendering.
type TaskView struct {
	Status      string
	Badge       string
	Text        string
	Note        string
	MetaCreated string
	MetaDue     string
	MetaOwner   string
}

// TasksView is the template data of the tasks pages.
type TasksView struct {
	Hint  string
	Tasks []TaskView
}

const tasksHint = "Input: send 'todo: ...' in Telegram. No reminders by default; tasks are persisted to this page."

// emptyTasksState is published when no state file exists yet.
func emptyTasksState() map[string]any {
	return map[string]any{
		"meta":  map[string]any{"version": 1},
		"tasks": []any{},
	}
}

// SortTasks orders tasks by createdAt, newest first. Ties keep file order.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt > tasks[j].CreatedAt
	})
}

// NewTaskView normalises a task's status and builds its meta line parts.
func NewTaskView(t Task) TaskView {
	v := TaskView{Status: t.Status, Text: t.Text, Note: t.Note}
	if v.Status != "open" && v.Status != "done" {
		v.Status = "open"
	}
	v.Badge = "OPEN"
	if v.Status == "done" {
		v.Badge = "DONE"
	}
	if t.CreatedAt != "" {
		v.MetaCreated = "created: " + t.CreatedAt
	}
	if t.DueAt != "" {
		v.MetaDue = "due: " + t.DueAt
	}
	if t.Owner != "" {
		v.MetaOwner = "owner: " + t.Owner
	}
	return v
}

// SyncTasks publishes the tasks state file to tasks/tasks.json and renders
// one tasks page per language. A missing state file publishes an empty list.
func (p *Publisher) SyncTasks(statePath string) (*Result, error) {
	start := p.clock.Now()
	res := &Result{Job: "tasks"}

	raw, ok, err := readOptional(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks state: %w", err)
	}

	var state map[string]any
	var parsed struct {
		Tasks []Task `json:"tasks"`
	}
	if !ok {
		p.logger.Warn("Tasks state file missing, publishing an empty list", "path", statePath)
		state = emptyTasksState()
	} else {
		if err = json.Unmarshal(raw, &state); err != nil {
			return nil, fmt.Errorf("failed to parse tasks state: %w", err)
		}
		if err = json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse tasks: %w", err)
		}
	}

	if err = p.writeJSON("tasks/tasks.json", state); err != nil {
		return nil, err
	}
	res.Files = append(res.Files, "tasks/tasks.json")

	SortTasks(parsed.Tasks)
	views := make([]TaskView, 0, len(parsed.Tasks))
	for _, t := range parsed.Tasks {
		views = append(views, NewTaskView(t))
	}

	updated := p.nowISO()
	for _, lang := range p.tm.Languages() {
		rel := editionPath(lang, "tasks")
		page := templating.Page{
			Lang:     lang,
			Path:     "/" + lang + "/tasks/",
			Section:  "Tasks",
			Subtitle: "Task list (persisted automatically; no reminders by default)",
			Updated:  updated,
			Data:     TasksView{Hint: tasksHint, Tasks: views},
		}
		if err = p.renderPage(rel, "tasks.tmpl.html", page); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, rel)
	}

	res.Duration = p.clock.Since(start)
	p.logger.Info("Tasks synced", "source", statePath, "tasks", len(views))
	return res, nil
}

// Package demoapp serves a small task board that follows the markup
// conventions boardcheck expects. It is seeded from a dataset so a run can be
// exercised end to end without an external application.
package demoapp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gotrs-io/boardcheck/internal/dataset"
)

// DefaultColumns are created for every application before dataset columns.
var DefaultColumns = []string{"To Do", "In Progress", "Done"}

type Card struct {
	ID    string
	Title string
	Tags  []string
}

type Column struct {
	Name  string
	Cards []Card
}

// Heading is the column title with its card count, e.g. "To Do (2)".
func (c *Column) Heading() string {
	return fmt.Sprintf("%s (%d)", c.Name, len(c.Cards))
}

type App struct {
	Name    string
	Columns []*Column
}

func (a *App) column(name string) *Column {
	for _, c := range a.Columns {
		if c.Name == name {
			return c
		}
	}
	c := &Column{Name: name}
	a.Columns = append(a.Columns, c)
	return c
}

// CardCount returns the number of cards across all columns.
func (a *App) CardCount() int {
	n := 0
	for _, c := range a.Columns {
		n += len(c.Cards)
	}
	return n
}

// Board is the in-memory state of the demo application. It is built once and
// only read afterwards.
type Board struct {
	Apps []*App
}

// App returns the application named name, or nil.
func (b *Board) App(name string) *App {
	for _, a := range b.Apps {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AppNames lists applications in sidebar order.
func (b *Board) AppNames() []string {
	names := make([]string, len(b.Apps))
	for i, a := range b.Apps {
		names[i] = a.Name
	}
	return names
}

func (b *Board) app(name string) *App {
	if a := b.App(name); a != nil {
		return a
	}
	a := &App{Name: name}
	for _, c := range DefaultColumns {
		a.column(c)
	}
	b.Apps = append(b.Apps, a)
	return a
}

// Omission drops one tag from one scenario's card so the board deliberately
// disagrees with the dataset.
type Omission struct {
	ScenarioID string
	Tag        string
}

var errBadOmission = errors.New("omission must look like <scenario-id>:<tag>")

// ParseOmission parses "T1:urgent".
func ParseOmission(s string) (Omission, error) {
	id, tag, ok := strings.Cut(s, ":")
	id, tag = strings.TrimSpace(id), strings.TrimSpace(tag)
	if !ok || id == "" || tag == "" {
		return Omission{}, fmt.Errorf("%w: %q", errBadOmission, s)
	}
	return Omission{ScenarioID: id, Tag: tag}, nil
}

// FromDataset places one card per scenario. Applications and extra columns
// appear in first-seen order.
func FromDataset(ds dataset.Dataset, omissions ...Omission) *Board {
	omit := make(map[string]map[string]bool)
	for _, o := range omissions {
		if omit[o.ScenarioID] == nil {
			omit[o.ScenarioID] = make(map[string]bool)
		}
		omit[o.ScenarioID][o.Tag] = true
	}

	b := &Board{}
	for _, s := range ds {
		tags := make([]string, 0, len(s.Tags))
		for _, t := range s.Tags {
			if !omit[s.ID][t] {
				tags = append(tags, t)
			}
		}
		col := b.app(s.App).column(s.Column)
		col.Cards = append(col.Cards, Card{ID: s.ID, Title: s.Task, Tags: tags})
	}
	return b
}

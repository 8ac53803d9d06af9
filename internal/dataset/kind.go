package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the dataset slot a table belongs to
type Kind string

const (
	Alarms        Kind = "alarms"
	Performance   Kind = "performance"
	Configuration Kind = "configuration"
	Provision     Kind = "provision"
	Availability  Kind = "availability"
	Quality       Kind = "quality"
	Projects      Kind = "projects"
)

// ErrUnknownKind is returned for names that are not a known Kind
var ErrUnknownKind = errors.New("unknown dataset kind")

// DashboardKinds are the kinds that get their own tab, in display order
var DashboardKinds = []Kind{Alarms, Performance, Configuration, Provision, Availability, Quality}

// AllKinds includes the projects reference table
var AllKinds = append(append([]Kind{}, DashboardKinds...), Projects)

var titles = map[Kind]string{
	Alarms:        "Alarms",
	Performance:   "Performance",
	Configuration: "Configuration",
	Provision:     "Provision",
	Availability:  "Availability",
	Quality:       "Quality",
	Projects:      "Projects",
}

// Title is the human readable tab name
func (k Kind) Title() string {
	if t, ok := titles[k]; ok {
		return t
	}
	return string(k)
}

// Valid reports whether k is one of AllKinds
func (k Kind) Valid() bool {
	_, ok := titles[k]
	return ok
}

// ParseKind resolves a kind name case-insensitively
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// filename keywords, checked in order; the first match wins
var detectRules = []struct {
	kind     Kind
	keywords []string
}{
	{Alarms, []string{"averia", "alarm", "fault"}},
	{Performance, []string{"desempe", "performance", "kpi"}},
	{Configuration, []string{"config", "configuracion"}},
	{Provision, []string{"provision", "provisi"}},
	{Availability, []string{"dispon", "availability"}},
	{Quality, []string{"calidad", "quality"}},
	{Projects, []string{"proyecto", "project", "site"}},
}

// DetectKind guesses the kind of an upload from its file name
func DetectKind(filename string) (Kind, bool) {
	name := strings.ToLower(filename)
	for _, rule := range detectRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.kind, true
			}
		}
	}
	return "", false
}

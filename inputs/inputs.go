// Package inputs turns the opaque structured-inputs record of a query into
// display tables.
//
// The record is decoded with mapstructure into the four sections the service
// populates. Missing sections produce empty tables; a record whose shape does
// not decode produces no tables at all.
package inputs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Table titles.
const (
	TitlePersonal    = "Retiree Personal Data"
	TitleAccounts    = "Starting Account Balances"
	TitleSettings    = "Simulation Settings and Assumptions"
	TitleAssumptions = "Investor Assumptions"
)

// Table is one titled grid of string cells.
type Table struct {
	Title   string     `json:"title" yaml:"title"`
	Headers []string   `json:"headers" yaml:"headers"`
	Rows    [][]string `json:"rows" yaml:"rows"`
	// Group places tables side by side; tables sharing a group form one row.
	Group int `json:"group" yaml:"group"`
}

type account struct {
	AccountType any `mapstructure:"accountType"`
	Balance     any `mapstructure:"balance"`
	Date        any `mapstructure:"date"`
}

type record struct {
	Simulation struct {
		RetireePersonalData map[string]any `mapstructure:"retireePersonalData"`
		Accounts            []account      `mapstructure:"accounts"`
		InvestorAssumptions map[string]any `mapstructure:"investorAssumptions"`
	} `mapstructure:"retirementPlanningSimulationInputs"`
	Settings map[string]any `mapstructure:"simulationSettingsAndAssumptionsDto"`
}

// Tables decodes raw into display tables. A nil record yields no tables
// and no error.
func Tables(raw map[string]any) ([]Table, error) {
	if raw == nil {
		return nil, nil
	}

	var rec record
	if err := mapstructure.Decode(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}

	accounts := make([][]string, 0, len(rec.Simulation.Accounts))
	for _, a := range rec.Simulation.Accounts {
		accounts = append(accounts, []string{Format(a.AccountType), Format(a.Balance), Format(a.Date)})
	}

	return []Table{
		{
			Title:   TitlePersonal,
			Headers: []string{"Field", "Value"},
			Rows:    entries(rec.Simulation.RetireePersonalData),
			Group:   0,
		},
		{
			Title:   TitleAccounts,
			Headers: []string{"Account Type", "Balance", "Date"},
			Rows:    accounts,
			Group:   0,
		},
		{
			Title:   TitleSettings,
			Headers: []string{"Setting", "Value"},
			Rows:    entries(rec.Settings),
			Group:   1,
		},
		{
			Title:   TitleAssumptions,
			Headers: []string{"Setting", "Value"},
			Rows:    entries(rec.Simulation.InvestorAssumptions),
			Group:   1,
		},
	}, nil
}

// entries returns key/value rows in sorted key order.
func entries(m map[string]any) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, Format(m[k])})
	}
	return rows
}

// Format renders a decoded JSON value as a table cell.
// Whole floats print without exponent; nested values print as compact JSON.
func Format(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}

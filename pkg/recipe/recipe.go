// Package recipe defines the recipe data model and the Provider
// interface the assistant reads steps through. Recipes are immutable
// once loaded; sessions reference steps by index only.
package recipe

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a recipe ID is unknown to the provider.
var ErrNotFound = errors.New("recipe: not found")

// Step is a single instruction in a recipe. Step numbers are 1-based.
type Step struct {
	Number          int           `json:"step_number"`
	Instruction     string        `json:"instruction"`
	EstimatedTime   time.Duration `json:"estimated_time,omitempty"`
	Temperature     string        `json:"temperature,omitempty"`
	IngredientsUsed []string      `json:"ingredients_used,omitempty"`
	EquipmentNeeded []string      `json:"equipment_needed,omitempty"`
	Tips            []string      `json:"tips,omitempty"`
}

// Ingredient is one entry in a recipe's ingredient list.
type Ingredient struct {
	Name        string   `json:"name"`
	Amount      string   `json:"amount"`
	Unit        string   `json:"unit,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
	Substitutes []string `json:"substitutes,omitempty"`
}

// Recipe is a complete recipe with ordered steps.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Servings    int          `json:"servings"`
	PrepTime    int          `json:"prep_time"` // minutes
	CookTime    int          `json:"cook_time"` // minutes
	Difficulty  string       `json:"difficulty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	Tags        []string     `json:"tags,omitempty"`
}

// StepCount returns the number of steps in the recipe.
func (r *Recipe) StepCount() int {
	return len(r.Steps)
}

// StepAt returns the step at the given 0-based index, or nil if the
// index is out of range (including the "complete" index == StepCount).
func (r *Recipe) StepAt(index int) *Step {
	if index < 0 || index >= len(r.Steps) {
		return nil
	}
	return &r.Steps[index]
}

// TotalTime returns the combined prep and cook time in minutes.
func (r *Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}

// Provider supplies recipes to the assistant and the transport layer.
type Provider interface {
	// Get returns the recipe with the given ID, or ErrNotFound.
	Get(id string) (*Recipe, error)

	// List returns all available recipes.
	List() ([]*Recipe, error)
}

// Summary is the listing view of a recipe without steps or ingredients.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	PrepTime    int    `json:"prep_time"`
	CookTime    int    `json:"cook_time"`
	Servings    int    `json:"servings"`
}

// Summarize returns the recipe's summary view.
func (r *Recipe) Summarize() Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Difficulty:  r.Difficulty,
		PrepTime:    r.PrepTime,
		CookTime:    r.CookTime,
		Servings:    r.Servings,
	}
}

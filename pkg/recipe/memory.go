package recipe

import (
	"sort"
	"sync"
	"time"
)

// MemoryCatalog is an in-memory Provider seeded with the sample
// recipes. It is safe for concurrent use.
type MemoryCatalog struct {
	mu      sync.RWMutex
	recipes map[string]*Recipe
}

// NewMemoryCatalog creates a catalog containing the sample recipes.
func NewMemoryCatalog() *MemoryCatalog {
	c := &MemoryCatalog{recipes: make(map[string]*Recipe)}
	for _, r := range SampleRecipes() {
		c.recipes[r.ID] = r
	}
	return c
}

// Get returns the recipe with the given ID.
func (c *MemoryCatalog) Get(id string) (*Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.recipes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// List returns all recipes sorted by ID.
func (c *MemoryCatalog) List() ([]*Recipe, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Recipe, 0, len(c.recipes))
	for _, r := range c.recipes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Add registers a recipe in the catalog, replacing any existing recipe
// with the same ID.
func (c *MemoryCatalog) Add(r *Recipe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recipes[r.ID] = r
}

var _ Provider = (*MemoryCatalog)(nil)

// SampleRecipes returns the built-in recipe set.
func SampleRecipes() []*Recipe {
	return []*Recipe{beefBurger()}
}

func beefBurger() *Recipe {
	return &Recipe{
		ID:          "classic_beef_burger",
		Name:        "Classic Beef Burger",
		Description: "A delicious homemade beef burger with all the classic toppings",
		Servings:    4,
		PrepTime:    15,
		CookTime:    10,
		Difficulty:  "easy",
		Ingredients: []Ingredient{
			{Name: "Ground beef", Amount: "1", Unit: "lb", Substitutes: []string{"Ground turkey", "Plant-based patties"}},
			{Name: "Burger buns", Amount: "4", Unit: "pieces"},
			{Name: "Salt", Amount: "1", Unit: "tsp"},
			{Name: "Black pepper", Amount: "1/2", Unit: "tsp"},
			{Name: "Garlic powder", Amount: "1/2", Unit: "tsp"},
			{Name: "Onion powder", Amount: "1/2", Unit: "tsp"},
			{Name: "Lettuce", Amount: "4", Unit: "leaves", Optional: true},
			{Name: "Tomato", Amount: "1", Unit: "large", Optional: true},
			{Name: "Cheese slices", Amount: "4", Unit: "pieces", Optional: true},
			{Name: "Pickles", Amount: "8", Unit: "slices", Optional: true},
			{Name: "Ketchup", Amount: "to taste", Optional: true},
			{Name: "Mustard", Amount: "to taste", Optional: true},
		},
		Steps: []Step{
			{
				Number:          1,
				Instruction:     "In a large bowl, gently mix the ground beef with salt, pepper, garlic powder, and onion powder. Don't overmix - this keeps the burgers tender.",
				EstimatedTime:   2 * time.Minute,
				IngredientsUsed: []string{"Ground beef", "Salt", "Black pepper", "Garlic powder", "Onion powder"},
				EquipmentNeeded: []string{"Large mixing bowl"},
				Tips:            []string{"Don't overmix the meat - it makes tough burgers", "Mix with your hands gently"},
			},
			{
				Number:          2,
				Instruction:     "Divide the seasoned beef into 4 equal portions and gently shape them into patties about 3/4 inch thick. Make a small indent in the center of each patty with your thumb.",
				EstimatedTime:   3 * time.Minute,
				IngredientsUsed: []string{"Ground beef mixture"},
				EquipmentNeeded: []string{"Clean hands"},
				Tips:            []string{"The thumb indent prevents the burger from puffing up while cooking", "Make patties slightly larger than your buns - they'll shrink"},
			},
			{
				Number:          3,
				Instruction:     "Heat a large skillet or grill pan over medium-high heat. You don't need oil - the beef has enough fat.",
				EstimatedTime:   2 * time.Minute,
				EquipmentNeeded: []string{"Large skillet or grill pan"},
				Tips:            []string{"The pan should be hot enough that water sizzles when dropped on it", "Cast iron works great for burgers"},
			},
			{
				Number:          4,
				Instruction:     "Place the patties in the hot pan. Cook for 3-4 minutes without moving them - this creates a nice crust. You'll hear them sizzling!",
				EstimatedTime:   4 * time.Minute,
				IngredientsUsed: []string{"Beef patties"},
				EquipmentNeeded: []string{"Spatula"},
				Tips:            []string{"Don't press down on the patties - you'll squeeze out the juices", "Resist the urge to move them around"},
			},
			{
				Number:          5,
				Instruction:     "Flip the patties and cook for another 3-4 minutes for medium doneness. If adding cheese, place it on top during the last minute of cooking.",
				EstimatedTime:   4 * time.Minute,
				IngredientsUsed: []string{"Cheese slices"},
				EquipmentNeeded: []string{"Spatula"},
				Tips:            []string{"For well-done, cook 2 more minutes per side", "The cheese will melt perfectly in the last minute"},
			},
			{
				Number:          6,
				Instruction:     "While the burgers finish cooking, quickly toast the buns in a dry pan or toaster until lightly golden.",
				EstimatedTime:   2 * time.Minute,
				IngredientsUsed: []string{"Burger buns"},
				EquipmentNeeded: []string{"Toaster or dry pan"},
				Tips:            []string{"Toasted buns hold up better to juicy burgers", "Just 30 seconds per side in the pan"},
			},
			{
				Number:        7,
				Instruction:   "Remove the patties from heat and let them rest for 1 minute. This helps the juices redistribute.",
				EstimatedTime: 1 * time.Minute,
				Tips:          []string{"This resting step makes a juicier burger", "Use this time to prep your toppings"},
			},
			{
				Number:          8,
				Instruction:     "Assemble your burgers! Start with the bottom bun, add lettuce, then the patty, cheese, tomato, pickles, and condiments. Top with the other bun half.",
				EstimatedTime:   3 * time.Minute,
				IngredientsUsed: []string{"Lettuce", "Tomato", "Pickles", "Ketchup", "Mustard"},
				Tips:            []string{"Lettuce on the bottom prevents the bun from getting soggy", "Don't overload - you want to be able to bite it!"},
			},
		},
		Tags: []string{"beef", "burger", "american", "grill", "easy", "quick"},
	}
}

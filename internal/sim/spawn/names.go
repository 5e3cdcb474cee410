package spawn

import (
	"math/rand/v2"
	"strconv"
)

var namePool = []string{
	"Abel", "Ada", "Alba", "Alder", "Amos", "Anya", "Arlo", "Ash",
	"Basil", "Bea", "Birch", "Bram", "Briar", "Cale", "Cass", "Cedar",
	"Clem", "Cora", "Dale", "Dara", "Dex", "Eda", "Elm", "Ember",
	"Enzo", "Esme", "Fern", "Finn", "Flint", "Gale", "Gus", "Hale",
	"Hazel", "Holt", "Ida", "Iris", "Ivo", "Jade", "Juno", "Kai",
	"Kit", "Lark", "Leif", "Lumi", "Mace", "Maple", "Milo", "Moss",
	"Nell", "Nico", "Oak", "Odo", "Opal", "Otto", "Pike", "Quill",
	"Reed", "Rook", "Rowan", "Rue", "Sage", "Slate", "Sol", "Tam",
	"Teo", "Thorn", "Ula", "Vale", "Vera", "Wren", "Yara", "Zed",
}

// fallbackName is used when every pool name is taken.
func fallbackName(tick uint64) string {
	return "Creep_" + strconv.FormatUint(tick, 10)
}

// pickName returns a free pool name chosen by an rng seeded with tick. When
// the pool is exhausted it returns the first free name of Creep_<tick>,
// Creep_<tick>_1, ... taken must hold every live agent name.
func pickName(pool []string, tick uint64, taken map[string]bool) string {
	free := make([]string, 0, len(pool))
	for _, n := range pool {
		if !taken[n] {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		base := fallbackName(tick)
		name := base
		for i := 1; taken[name]; i++ {
			name = base + "_" + strconv.Itoa(i)
		}
		return name
	}
	rng := rand.New(rand.NewPCG(tick, tick^0x9e3779b97f4a7c15))
	return free[rng.IntN(len(free))]
}

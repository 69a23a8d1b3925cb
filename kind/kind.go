// Package kind tags statechart elements with a packed uint64 that carries an
// element's own identifier plus the identifiers of every kind it derives from.
//
// The lowest byte of a Kind is its own identifier; each following byte holds one
// base identifier. A Kind can therefore carry itself plus seven distinct bases,
// which is enough for the closed element hierarchy of a statechart.
package kind

import "sync/atomic"

const (
	width    = 8
	slots    = 64 / width
	slotMask = (1 << width) - 1
)

// Kind is a packed element kind.
type Kind = uint64

var counter atomic.Uint64

// ID returns the identifier byte of k with its bases stripped.
func ID(k Kind) Kind {
	return k & slotMask
}

// Bases returns the base identifiers packed into k, nearest base first.
func Bases(k Kind) []Kind {
	var bases []Kind
	for i := 1; i < slots; i++ {
		id := (k >> (width * i)) & slotMask
		if id == 0 {
			break
		}
		bases = append(bases, id)
	}
	return bases
}

// Make allocates a new identifier and packs the identifiers of bases (and their
// own bases) behind it, dropping duplicates. The first kind made is the null kind.
func Make(bases ...Kind) Kind {
	id := (counter.Add(1) - 1) & slotMask
	seen := map[Kind]struct{}{}
	for _, base := range bases {
		for i := 0; i < slots; i++ {
			baseID := (base >> (width * i)) & slotMask
			if baseID == 0 {
				break
			}
			if _, ok := seen[baseID]; ok {
				continue
			}
			seen[baseID] = struct{}{}
			if len(seen) >= slots {
				panic("kind: too many bases")
			}
			id |= baseID << (width * len(seen))
		}
	}
	return id
}

// Is reports whether k is, or derives from, any of bases.
func Is(k Kind, bases ...Kind) bool {
	for _, base := range bases {
		baseID := base & slotMask
		if baseID == 0 {
			continue
		}
		for i := 0; i < slots; i++ {
			if (k>>(width*i))&slotMask == baseID {
				return true
			}
		}
	}
	return false
}

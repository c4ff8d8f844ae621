// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package machine

import (
	"math/rand"
	"time"
)

// Random is the default source for RND, backed by math/rand.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a source seeded with seed. A seed of zero is used as-is so
// that test runs are reproducible.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func newTimeRandom() *Random {
	return NewRandom(time.Now().UnixNano())
}

func (rnd *Random) Byte() byte {
	return byte(rnd.rng.Intn(256))
}

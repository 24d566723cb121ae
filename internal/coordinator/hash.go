package coordinator

import "github.com/spaolacci/murmur3"

// AssignPool maps a board name to one of poolCount worker pools via
// consistent hashing, so the same board always lands in the same pool
// across a coordinator's runs and adding boards reshuffles as few
// assignments as possible (§5).
func AssignPool(boardName string, poolCount int) int {
	if poolCount <= 1 {
		return 0
	}
	h := murmur3.Sum32([]byte(boardName))
	return int(h % uint32(poolCount))
}

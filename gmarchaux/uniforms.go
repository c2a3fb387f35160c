package gmarchaux

import "errors"

var errBadHandle = errors.New("invalid program handle")

// locationCache caches uniform locations per program. Handles start at 1.
type locationCache struct {
	locs []map[string]int32
}

// add registers a new program and returns its handle.
func (c *locationCache) add() ProgramHandle {
	c.locs = append(c.locs, make(map[string]int32))
	return ProgramHandle(len(c.locs))
}

func (c *locationCache) valid(h ProgramHandle) bool {
	return h != 0 && int(h) <= len(c.locs)
}

// location returns the cached location of name in program h, calling locate on a miss.
func (c *locationCache) location(h ProgramHandle, name string, locate func(name string) (int32, error)) (int32, error) {
	if !c.valid(h) {
		return 0, errBadHandle
	}
	locs := c.locs[h-1]
	loc, ok := locs[name]
	if ok {
		return loc, nil
	}
	loc, err := locate(name)
	if err != nil {
		return 0, err
	}
	locs[name] = loc
	return loc, nil
}

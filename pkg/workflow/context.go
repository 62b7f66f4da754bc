package workflow

// Context is the mutable, string-keyed store shared across all steps in one
// execution run. It is created empty at the start of a run and discarded at
// the end; it is never shared across concurrent runs. No locking: exactly
// one step executes at a time.
type Context struct {
	entries map[string]Value
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{entries: make(map[string]Value)}
}

// Set stores a value under key, overwriting any existing entry. A handler
// that needs the prior value must read it first.
func (c *Context) Set(key string, value Value) {
	c.entries[key] = value
}

// Get returns the value for key and whether it was present. An absent key is
// distinguished from a present-but-false/zero value.
func (c *Context) Get(key string) (Value, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Contains reports whether key is present.
func (c *Context) Contains(key string) bool {
	_, ok := c.entries[key]
	return ok
}

// Remove deletes key and reports whether it was present.
func (c *Context) Remove(key string) bool {
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Len returns the number of stored entries.
func (c *Context) Len() int {
	return len(c.entries)
}

// Keys returns the stored keys in unspecified order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Number returns the value for key coerced to a number, or def when absent.
func (c *Context) Number(key string, def float64) float64 {
	if v, ok := c.entries[key]; ok {
		return v.AsNumber()
	}
	return def
}

// Text returns the value for key coerced to text, or def when absent.
func (c *Context) Text(key string, def string) string {
	if v, ok := c.entries[key]; ok {
		return v.AsText()
	}
	return def
}

// Bool returns the value for key coerced to a bool, or def when absent.
func (c *Context) Bool(key string, def bool) bool {
	if v, ok := c.entries[key]; ok {
		return v.AsBool()
	}
	return def
}

package texture

// Key identifies a texture by its own name and the name of the palette
// it was paired with. The same texture data may legitimately appear
// under several palettes.
type Key struct {
	Name    string
	Palette string
}

// Cache deduplicates decoded textures within one model parse and hands
// out stable slot indices in first-added order. A parse runs single
// threaded, so no locking is needed.
type Cache struct {
	index map[Key]int
	order []*Texture
}

func NewCache() *Cache {
	return &Cache{index: make(map[Key]int)}
}

// Lookup returns the slot of the texture stored under k.
func (c *Cache) Lookup(k Key) (int, bool) {
	i, ok := c.index[k]
	return i, ok
}

// Add stores t under k and returns its slot. Adding an existing key
// replaces the texture in place.
func (c *Cache) Add(k Key, t *Texture) int {
	if i, ok := c.index[k]; ok {
		c.order[i] = t
		return i
	}
	c.index[k] = len(c.order)
	c.order = append(c.order, t)
	return len(c.order) - 1
}

// Textures lists the cached textures in slot order.
func (c *Cache) Textures() []*Texture {
	return c.order
}

func (c *Cache) Len() int { return len(c.order) }

package mem

// DefaultStringsPageSize provides a default for Strings.PageSize.
const DefaultStringsPageSize = 255

// Strings implements an append-only, paged string arena: each Append
// returns a stable address that Load will always resolve to the same
// value, even as later pages are allocated. Pages are allocated lazily via
// the shared PagedCore bookkeeping, so a Strings arena backing many
// independent interning tables doesn't have to pre-size anything.
type Strings struct {
	PagedCore
	pages [][]string
	fill  []int
}

// Size returns the address that the next Append will be given.
func (m *Strings) Size() uint {
	if i := len(m.bases) - 1; i >= 0 {
		return m.bases[i] + uint(m.fill[i])
	}
	return 0
}

// Load returns the string stored at addr, and whether addr is in range.
func (m *Strings) Load(addr uint) (string, bool) {
	if len(m.pages) == 0 {
		return "", false
	}
	pageID := m.findPage(addr)
	base := m.bases[pageID]
	if i := int(addr) - int(base); 0 <= i && i < m.fill[pageID] {
		return m.pages[pageID][i], true
	}
	return "", false
}

// Append stores s at the next address, allocating a page if the current
// one is full, and returns that address. If Limit is set and the next
// address would exceed it, Append does not store s and returns a
// LimitError instead, guarding against a pathological macro expansion
// interning unbounded distinct literals between one recursion-depth check
// and the next.
func (m *Strings) Append(s string) (uint, error) {
	if m.PageSize == 0 {
		m.PageSize = DefaultStringsPageSize
	}

	addr := m.Size()
	if err := m.checkLimit(addr, "intern"); err != nil {
		return 0, err
	}

	pageID := len(m.bases) - 1
	if pageID < 0 || m.fill[pageID] >= len(m.pages[pageID]) {
		base, size, isNew := m.PagedCore.allocPage(len(m.bases), addr)
		_ = base
		if isNew {
			m.pages = append(m.pages, make([]string, size))
			m.fill = append(m.fill, 0)
		}
		pageID = len(m.bases) - 1
	}

	m.pages[pageID][m.fill[pageID]] = s
	m.fill[pageID]++
	return addr, nil
}

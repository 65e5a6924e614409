package booking

import (
	"errors"
	"sort"
)

// ErrItemNotFound is returned when an operation names an id that is not in the cart.
var ErrItemNotFound = errors.New("booking: item not found")

// State is a read-only snapshot of a Cart.
type State struct {
	Items           []CartItem `json:"items"`
	AcceptedItems   []CartItem `json:"acceptedItems"`
	SelectedItemIDs []string   `json:"selectedItemIds"`
	Loading         bool       `json:"loading"`
	Error           string     `json:"error,omitempty"`
}

// IsSelected reports whether id is part of the snapshot's selection.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.SelectedItemIDs {
		if sel == id {
			return true
		}
	}
	return false
}

// CanSubmit reports whether the snapshot's selection could be submitted.
func (s State) CanSubmit() bool {
	return canSubmit(s.Items, s.IsSelected)
}

// Cart holds pending and accepted items plus the user's checkout selection.
// Every selected id refers to a pending or accepted item: the selection is
// pruned whenever either list is replaced.
//
// Cart is not safe for concurrent use; callers serialise transitions.
type Cart struct {
	items    []CartItem
	accepted []CartItem
	selected map[string]struct{}
	loading  bool
	err      string
}

func NewCart() *Cart {
	return &Cart{
		items:    []CartItem{},
		accepted: []CartItem{},
		selected: make(map[string]struct{}),
	}
}

func (c *Cart) SetItems(items []CartItem) {
	c.items = cloneItems(items)
	c.err = ""
	c.loading = false
	c.pruneSelection()
}

func (c *Cart) SetAcceptedItems(items []CartItem) {
	c.accepted = cloneItems(items)
	c.err = ""
	c.loading = false
	c.pruneSelection()
}

// RemoveItem drops a pending item and its selection. Unknown ids are ignored.
func (c *Cart) RemoveItem(id string) {
	kept := c.items[:0]
	for _, it := range c.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	c.items = kept
	delete(c.selected, id)
}

func (c *Cart) UpdateItem(id string, patch ItemPatch) error {
	idx := indexOf(c.items, id)
	if idx < 0 {
		return ErrItemNotFound
	}
	it := c.items[idx]
	if patch.Listing != nil {
		it.Listing = *patch.Listing
	}
	if patch.Pricing != nil {
		it.Pricing = *patch.Pricing
	}
	if patch.TempDetails != nil {
		it.TempDetails = patch.TempDetails.clone()
	}
	if patch.BookingDetails != nil {
		bd := *patch.BookingDetails
		it.BookingDetails = &bd
	}
	c.items[idx] = it.clone()
	return nil
}

// ToggleSelection flips id in or out of the selection. Ids that are neither
// pending nor accepted are rejected and leave the selection untouched.
func (c *Cart) ToggleSelection(id string) error {
	if !c.known(id) {
		return ErrItemNotFound
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
		return nil
	}
	c.selected[id] = struct{}{}
	return nil
}

func (c *Cart) ClearSelection() {
	c.selected = make(map[string]struct{})
}

// SelectAllEligible replaces the selection with every complete pending item.
func (c *Cart) SelectAllEligible() {
	next := make(map[string]struct{}, len(c.items))
	for _, it := range c.items {
		if IsComplete(it) {
			next[it.ID] = struct{}{}
		}
	}
	c.selected = next
}

func (c *Cart) SetLoading(loading bool) {
	c.loading = loading
}

// SetError records a host supplied failure message. An empty message clears it.
func (c *Cart) SetError(msg string) {
	c.err = msg
}

func (c *Cart) ClearError() {
	c.err = ""
}

func (c *Cart) Snapshot() State {
	return State{
		Items:           cloneItems(c.items),
		AcceptedItems:   cloneItems(c.accepted),
		SelectedItemIDs: c.selectedIDs(),
		Loading:         c.loading,
		Error:           c.err,
	}
}

func (c *Cart) IsSelected(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// SelectedItems returns the pending items currently selected, in cart order.
func (c *Cart) SelectedItems() []CartItem {
	var out []CartItem
	for _, it := range c.items {
		if c.IsSelected(it.ID) {
			out = append(out, it.clone())
		}
	}
	return out
}

func (c *Cart) ItemsWithCompleteInfo() []CartItem {
	var out []CartItem
	for _, it := range c.items {
		if IsComplete(it) {
			out = append(out, it.clone())
		}
	}
	return out
}

// CanSubmit reports whether at least one pending item is selected and every
// selected pending item is complete.
func (c *Cart) CanSubmit() bool {
	return canSubmit(c.items, c.IsSelected)
}

func canSubmit(items []CartItem, selected func(string) bool) bool {
	n := 0
	for _, it := range items {
		if !selected(it.ID) {
			continue
		}
		if !IsComplete(it) {
			return false
		}
		n++
	}
	return n > 0
}

func (c *Cart) known(id string) bool {
	return indexOf(c.items, id) >= 0 || indexOf(c.accepted, id) >= 0
}

func (c *Cart) pruneSelection() {
	for id := range c.selected {
		if !c.known(id) {
			delete(c.selected, id)
		}
	}
}

func (c *Cart) selectedIDs() []string {
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func indexOf(items []CartItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeItem(id string) CartItem {
	return CartItem{
		ID:      id,
		Listing: ListingRef{ID: "listing-" + id, Title: "Listing " + id},
		Pricing: PricingSchedule{Type: RatePerEvent, PerEvent: nd("100"), Currency: "EUR"},
		TempDetails: TempDetails{
			EventDate:     StringPtr("2025-04-01"),
			EventTime:     StringPtr("18:00"),
			EventLocation: StringPtr("Rotterdam"),
		},
	}
}

func incompleteItem(id string) CartItem {
	return CartItem{
		ID:      id,
		Listing: ListingRef{ID: "listing-" + id, Title: "Listing " + id},
		Pricing: PricingSchedule{Type: RatePerEvent, PerEvent: nd("100"), Currency: "EUR"},
	}
}

func acceptedItem(id string) CartItem {
	it := incompleteItem(id)
	it.BookingDetails = &BookingDetails{Status: "accepted", PaymentStatus: "pending", Currency: "EUR"}
	return it
}

func assertSelectionKnown(t *testing.T, s State) {
	t.Helper()
	known := map[string]bool{}
	for _, it := range s.Items {
		known[it.ID] = true
	}
	for _, it := range s.AcceptedItems {
		known[it.ID] = true
	}
	for _, id := range s.SelectedItemIDs {
		assert.Truef(t, known[id], "selected id %q is not in the cart", id)
	}
}

func TestNewCart_InitialState(t *testing.T) {
	s := NewCart().Snapshot()

	assert.Empty(t, s.Items)
	assert.Empty(t, s.AcceptedItems)
	assert.Empty(t, s.SelectedItemIDs)
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
}

func TestCart_SetItemsClearsErrorAndLoading(t *testing.T) {
	c := NewCart()
	c.SetLoading(true)
	c.SetError("upstream unavailable")

	c.SetItems([]CartItem{completeItem("a")})

	s := c.Snapshot()
	assert.False(t, s.Loading)
	assert.Empty(t, s.Error)
	require.Len(t, s.Items, 1)
}

func TestCart_SetItemsPrunesSelection(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a"), completeItem("b")})
	require.NoError(t, c.ToggleSelection("a"))
	require.NoError(t, c.ToggleSelection("b"))

	c.SetItems([]CartItem{completeItem("b")})

	s := c.Snapshot()
	assert.Equal(t, []string{"b"}, s.SelectedItemIDs)
	assertSelectionKnown(t, s)
}

func TestCart_AcceptedSelectionSurvivesPendingReplace(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a")})
	c.SetAcceptedItems([]CartItem{acceptedItem("x")})
	require.NoError(t, c.ToggleSelection("x"))

	c.SetItems(nil)

	assert.True(t, c.IsSelected("x"))
	c.SetAcceptedItems(nil)
	assert.False(t, c.IsSelected("x"))
}

func TestCart_ToggleSelectionTwiceRestores(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a"), incompleteItem("b")})
	require.NoError(t, c.ToggleSelection("b"))
	before := c.Snapshot().SelectedItemIDs

	require.NoError(t, c.ToggleSelection("a"))
	require.NoError(t, c.ToggleSelection("a"))

	assert.Equal(t, before, c.Snapshot().SelectedItemIDs)
}

func TestCart_ToggleUnknownID(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a")})

	err := c.ToggleSelection("ghost")

	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, c.Snapshot().SelectedItemIDs)
}

func TestCart_RemoveItem(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a"), completeItem("b")})
	require.NoError(t, c.ToggleSelection("a"))

	c.RemoveItem("a")
	c.RemoveItem("ghost")

	s := c.Snapshot()
	require.Len(t, s.Items, 1)
	assert.Equal(t, "b", s.Items[0].ID)
	assert.Empty(t, s.SelectedItemIDs)
}

func TestCart_UpdateItemReplacesTempDetails(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a")})

	err := c.UpdateItem("a", ItemPatch{TempDetails: &TempDetails{EventDate: StringPtr("2025-05-05")}})
	require.NoError(t, err)

	s := c.Snapshot()
	td := s.Items[0].TempDetails
	require.NotNil(t, td.EventDate)
	assert.Equal(t, "2025-05-05", *td.EventDate)
	assert.Nil(t, td.EventTime)
	assert.Nil(t, td.EventLocation)
	assert.Equal(t, "Listing a", s.Items[0].Listing.Title)
}

func TestCart_UpdateItemUnknown(t *testing.T) {
	c := NewCart()
	err := c.UpdateItem("ghost", ItemPatch{Listing: &ListingRef{Title: "x"}})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCart_SelectAllEligibleReplaces(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a"), incompleteItem("b"), completeItem("c")})
	require.NoError(t, c.ToggleSelection("b"))

	c.SelectAllEligible()

	assert.Equal(t, []string{"a", "c"}, c.Snapshot().SelectedItemIDs)
}

func TestCart_CanSubmit(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a"), incompleteItem("b")})
	assert.False(t, c.CanSubmit(), "empty selection")

	require.NoError(t, c.ToggleSelection("a"))
	assert.True(t, c.CanSubmit())

	require.NoError(t, c.ToggleSelection("b"))
	assert.False(t, c.CanSubmit(), "incomplete item selected")

	c.ClearSelection()
	assert.False(t, c.CanSubmit())
}

func TestState_CanSubmitMatchesCart(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a"), incompleteItem("b")})
	c.SetAcceptedItems([]CartItem{acceptedItem("x")})

	steps := []func(){
		func() {},
		func() { require.NoError(t, c.ToggleSelection("x")) },
		func() { require.NoError(t, c.ToggleSelection("a")) },
		func() { require.NoError(t, c.ToggleSelection("b")) },
		func() { c.RemoveItem("b") },
		func() { c.ClearSelection() },
	}
	want := []bool{false, false, true, false, true, false}

	for i, step := range steps {
		step()
		assert.Equal(t, want[i], c.Snapshot().CanSubmit(), "step %d", i)
		assert.Equal(t, c.CanSubmit(), c.Snapshot().CanSubmit(), "step %d", i)
	}
}

func TestCart_ItemsWithCompleteInfo(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{incompleteItem("a"), completeItem("b")})

	got := c.ItemsWithCompleteInfo()

	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestCart_ErrorFlags(t *testing.T) {
	c := NewCart()
	c.SetError("boom")
	assert.Equal(t, "boom", c.Snapshot().Error)

	c.SetError("")
	assert.Empty(t, c.Snapshot().Error)

	c.SetError("again")
	c.ClearError()
	assert.Empty(t, c.Snapshot().Error)
}

func TestCart_SnapshotIsDeepCopy(t *testing.T) {
	c := NewCart()
	c.SetItems([]CartItem{completeItem("a")})

	s := c.Snapshot()
	*s.Items[0].TempDetails.EventLocation = "elsewhere"
	s.Items[0].Listing.Title = "changed"

	fresh := c.Snapshot()
	assert.Equal(t, "Rotterdam", *fresh.Items[0].TempDetails.EventLocation)
	assert.Equal(t, "Listing a", fresh.Items[0].Listing.Title)
}

func TestCart_SetItemsCopiesInput(t *testing.T) {
	items := []CartItem{completeItem("a")}
	c := NewCart()
	c.SetItems(items)

	*items[0].TempDetails.EventDate = "2030-01-01"

	assert.Equal(t, "2025-04-01", *c.Snapshot().Items[0].TempDetails.EventDate)
}

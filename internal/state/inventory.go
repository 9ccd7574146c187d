package state

// InventorySlot stores an item stack at a fixed position. Stacks live behind
// stable pointers: reordering or removing slots never moves another slot's
// stack in memory, so outstanding *ItemStack references stay trustworthy.
type InventorySlot struct {
	Slot int        `json:"slot"`
	Item *ItemStack `json:"item"`
}

// Inventory maintains an ordered list of occupied slots with a slot-count and
// carry-weight ceiling. Slot order is deterministic.
type Inventory struct {
	Slots     []InventorySlot `json:"slots"`
	MaxSlots  int             `json:"max_slots"`
	MaxWeight float64         `json:"max_weight"`
}

func NewInventory(maxSlots int, maxWeight float64) Inventory {
	return Inventory{MaxSlots: maxSlots, MaxWeight: maxWeight}
}

// Stacks returns live references to every stored stack, in slot order.
// Mutating a returned stack mutates the inventory.
func (inv *Inventory) Stacks() []*ItemStack {
	if inv == nil {
		return nil
	}
	out := make([]*ItemStack, 0, len(inv.Slots))
	for i := range inv.Slots {
		out = append(out, inv.Slots[i].Item)
	}
	return out
}

// Contains reports whether the given stack reference still lives in this
// inventory. Callers holding stale references use this to re-validate.
func (inv *Inventory) Contains(stack *ItemStack) bool {
	if inv == nil || stack == nil {
		return false
	}
	for i := range inv.Slots {
		if inv.Slots[i].Item == stack {
			return true
		}
	}
	return false
}

func (inv *Inventory) TotalWeight() float64 {
	if inv == nil {
		return 0
	}
	total := 0.0
	for i := range inv.Slots {
		total += inv.Slots[i].Item.Weight()
	}
	return total
}

// HasCapacity reports whether anything at all could still be stored: a free
// slot, or an under-filled stackable slot.
func (inv *Inventory) HasCapacity() bool {
	if inv == nil {
		return false
	}
	if len(inv.Slots) < inv.MaxSlots {
		return true
	}
	for i := range inv.Slots {
		item := inv.Slots[i].Item
		def, ok := item.Definition()
		if !ok || !def.Stackable {
			continue
		}
		if item.Quantity < def.StackSize {
			return true
		}
	}
	return false
}

// CanAdd reports whether the whole stack would fit: weight under the ceiling
// and enough stackable headroom or free slots for every unit.
func (inv *Inventory) CanAdd(stack ItemStack) bool {
	if inv == nil || stack.Quantity <= 0 {
		return false
	}
	if inv.TotalWeight()+stack.Weight() > inv.MaxWeight {
		return false
	}
	def, hasDef := ItemDefinitionFor(stack.Type)
	remaining := stack.Quantity
	if hasDef && def.Stackable {
		for i := range inv.Slots {
			item := inv.Slots[i].Item
			if item.FungibilityKey != stack.FungibilityKey {
				continue
			}
			if headroom := def.StackSize - item.Quantity; headroom > 0 {
				remaining -= headroom
			}
		}
	}
	if remaining <= 0 {
		return true
	}
	free := inv.MaxSlots - len(inv.Slots)
	if free <= 0 {
		return false
	}
	perSlot := 1
	if hasDef && def.Stackable {
		perSlot = def.StackSize
	}
	return remaining <= free*perSlot
}

// Add stores the stack, merging into compatible slots first. Returns false
// without mutating when the stack does not fit.
func (inv *Inventory) Add(stack ItemStack) bool {
	if !inv.CanAdd(stack) {
		return false
	}
	def, hasDef := ItemDefinitionFor(stack.Type)
	remaining := stack.Quantity
	if hasDef && def.Stackable {
		for i := range inv.Slots {
			item := inv.Slots[i].Item
			if item.FungibilityKey != stack.FungibilityKey {
				continue
			}
			headroom := def.StackSize - item.Quantity
			if headroom <= 0 {
				continue
			}
			take := headroom
			if take > remaining {
				take = remaining
			}
			item.Quantity += take
			remaining -= take
			if remaining == 0 {
				return true
			}
		}
	}
	for remaining > 0 {
		// Non-stackable items occupy one slot per unit, matching CanAdd's
		// budget.
		take := 1
		if hasDef && def.Stackable {
			take = remaining
			if take > def.StackSize {
				take = def.StackSize
			}
		}
		placed := stack
		placed.Quantity = take
		inv.Slots = append(inv.Slots, InventorySlot{Slot: inv.nextSlot(), Item: &placed})
		remaining -= take
	}
	return true
}

// Remove deletes the slot holding the given stack reference. Returns the
// removed stack and whether anything was removed.
func (inv *Inventory) Remove(stack *ItemStack) (ItemStack, bool) {
	if inv == nil || stack == nil {
		return ItemStack{}, false
	}
	for i := range inv.Slots {
		if inv.Slots[i].Item != stack {
			continue
		}
		removed := *inv.Slots[i].Item
		inv.Slots = append(inv.Slots[:i], inv.Slots[i+1:]...)
		return removed, true
	}
	return ItemStack{}, false
}

func (inv *Inventory) nextSlot() int {
	used := make(map[int]struct{}, len(inv.Slots))
	for i := range inv.Slots {
		used[inv.Slots[i].Slot] = struct{}{}
	}
	for slot := 0; ; slot++ {
		if _, taken := used[slot]; !taken {
			return slot
		}
	}
}

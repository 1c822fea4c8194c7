package world

// BlockType identifies a block definition in the catalog.
type BlockType string

// Well-known block types the engine itself depends on. The catalog carries
// the designer metadata for these ids (hardness, drops, immutability) and may
// define any number of additional types.
const (
	BlockAir     BlockType = "air"
	BlockBedrock BlockType = "bedrock"
	BlockStone   BlockType = "stone"
	BlockDirt    BlockType = "dirt"
	BlockGravel  BlockType = "gravel"
	BlockOre     BlockType = "ore"
)

// Orientation is auxiliary block data for types that face a direction.
type Orientation uint8

const (
	OrientNone Orientation = iota
	OrientNorth
	OrientSouth
	OrientEast
	OrientWest
	OrientUp
	OrientDown
)

// BlockState is the value stored per grid cell. The zero value reads as air.
type BlockState struct {
	Type   BlockType   `json:"type"`
	Orient Orientation `json:"orient,omitempty"`
}

func (s BlockState) IsAir() bool {
	return s.Type == "" || s.Type == BlockAir
}

// Air and Bedrock are the states the grid substitutes for cells it does not
// store explicitly.
var (
	Air     = BlockState{Type: BlockAir}
	Bedrock = BlockState{Type: BlockBedrock}
)

// BlockSnapshot is an immutable record of one block write: the state found at
// the position before the write, the state written, and the tick it happened
// on. Reverting a change applies Prior back through the write barrier.
type BlockSnapshot struct {
	Pos   BlockPos   `json:"pos"`
	Prior BlockState `json:"prior"`
	Next  BlockState `json:"next"`
	Tick  uint64     `json:"tick"`
}

// Changed reports whether the write actually altered the cell.
func (s BlockSnapshot) Changed() bool {
	return s.Prior != s.Next
}

// ItemStack is a quantity of one catalog item, produced when blocks break.
type ItemStack struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

package world

// soilDepth is the number of dirt layers placed on top of the stone band.
const soilDepth = 2

func (g *Grid) generate() {
	width, height, depth := Dimensions(g.config)

	stoneTop := height * 2 / 3
	if stoneTop < 1 {
		stoneTop = 1
	}
	soilTop := stoneTop + soilDepth
	if soilTop > height {
		soilTop = height
	}

	for x := 0; x < width; x++ {
		for z := 0; z < depth; z++ {
			g.blocks[BlockPos{X: x, Y: 0, Z: z}] = Bedrock
			for y := 1; y < stoneTop; y++ {
				g.blocks[BlockPos{X: x, Y: y, Z: z}] = BlockState{Type: BlockStone}
			}
			for y := stoneTop; y < soilTop; y++ {
				g.blocks[BlockPos{X: x, Y: y, Z: z}] = BlockState{Type: BlockDirt}
			}
		}
	}

	g.seedOreVeins(stoneTop)
}

// seedOreVeins scatters ore through the stone band with a deterministic
// random walk per vein.
func (g *Grid) seedOreVeins(stoneTop int) {
	count := g.config.OreVeins
	if count <= 0 || stoneTop <= 1 {
		return
	}

	rng := g.SubsystemRNG("worldgen.ore")
	width, _, depth := Dimensions(g.config)

	for v := 0; v < count; v++ {
		pos := BlockPos{
			X: rng.Intn(width),
			Y: 1 + rng.Intn(stoneTop-1),
			Z: rng.Intn(depth),
		}
		for i := 0; i < g.config.VeinSize; i++ {
			if g.BlockAt(pos).Type == BlockStone {
				g.blocks[pos] = BlockState{Type: BlockOre}
			}
			pos = pos.Offset(rng.Intn(3)-1, rng.Intn(3)-1, rng.Intn(3)-1)
		}
	}
}

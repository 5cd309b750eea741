package cpu

// mapping.go builds the ARM and THUMB dispatch tables from small bit-pattern
// descriptions instead of a long hand-written switch, the way a hardware
// decoder is documented: a pattern lists a 12 (ARM) or 10 (THUMB) bit mask
// and the value those bits must match. Patterns are listed most-specific
// first (e.g. branch-and-exchange before the general data-processing
// pattern it would otherwise also match) and the first match at table-build
// time wins, mirroring how the ARM7TDMI's own instruction set is documented
// as an ordered set of special cases carved out of a more general encoding.
// Ground: Gopher2600's arm/thumb.go decodes by checking fixed high-bit
// prefixes one instruction class at a time; lookbusy1344's constants.go
// names the bit-field masks this borrows the style of. Generalized here
// into a declarative table built once at package init.

// armHandler executes one decoded ARM instruction.
type armHandler func(c *CPU, instr uint32)

// armPattern matches bits [27:20] (8 bits, shifted into [11:4]) and bits
// [7:4] (4 bits, in [3:0]) of the instruction word — the 12 bits that
// uniquely distinguish every ARM instruction class regardless of condition.
type armPattern struct {
	mask, value uint16
	name        string
	exec        armHandler
}

var armTable [4096]armHandler
var armNames [4096]string

func armKey(instr uint32) uint16 {
	hi := uint16((instr >> 20) & 0xFF)
	lo := uint16((instr >> 4) & 0xF)
	return hi<<4 | lo
}

// checkARMOrdering panics if any pattern is entirely shadowed by an earlier,
// more general pattern in the list: since the first match at build time
// wins, a pattern whose own canonical value already matches an earlier
// pattern's mask/value can never win a single key and is a silent
// table-authoring bug (patterns listed out of most-specific-first order),
// which spec.md section 4.E/F requires to surface as a build-time error
// rather than a silently wrong decode table.
func checkARMOrdering(patterns []armPattern) {
	for i, p := range patterns {
		for j := 0; j < i; j++ {
			prior := patterns[j]
			if p.value&prior.mask == prior.value {
				panic("cpu: ARM decode pattern " + p.name + " is fully shadowed by earlier pattern " + prior.name + " (patterns must be ordered most-specific first)")
			}
		}
	}
}

func buildARMTable(patterns []armPattern) [4096]armHandler {
	checkARMOrdering(patterns)
	var table [4096]armHandler
	for key := 0; key < 4096; key++ {
		k := uint16(key)
		for _, p := range patterns {
			if k&p.mask == p.value {
				table[key] = p.exec
				armNames[key] = p.name
				break
			}
		}
	}
	return table
}

// thumbHandler executes one decoded THUMB instruction.
type thumbHandler func(c *CPU, instr uint16)

// thumbPattern matches bits [15:6] of the instruction (10 bits), which are
// sufficient to distinguish all 19 THUMB instruction formats.
type thumbPattern struct {
	mask, value uint16
	name        string
	exec        thumbHandler
}

var thumbTable [1024]thumbHandler

func thumbKey(instr uint16) uint16 { return (instr >> 6) & 0x3FF }

// checkThumbOrdering is checkARMOrdering's counterpart for the THUMB table.
func checkThumbOrdering(patterns []thumbPattern) {
	for i, p := range patterns {
		for j := 0; j < i; j++ {
			prior := patterns[j]
			if p.value&prior.mask == prior.value {
				panic("cpu: THUMB decode pattern " + p.name + " is fully shadowed by earlier pattern " + prior.name + " (patterns must be ordered most-specific first)")
			}
		}
	}
}

func buildThumbTable(patterns []thumbPattern) [1024]thumbHandler {
	checkThumbOrdering(patterns)
	var table [1024]thumbHandler
	for key := 0; key < 1024; key++ {
		k := uint16(key)
		for _, p := range patterns {
			if k&p.mask == p.value {
				table[key] = p.exec
				break
			}
		}
	}
	return table
}

func itohex(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0x0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xF]
		v >>= 4
	}
	return "0x" + string(buf[i:])
}

func init() {
	armTable = buildARMTable(armPatterns())
	thumbTable = buildThumbTable(thumbPatterns())
}

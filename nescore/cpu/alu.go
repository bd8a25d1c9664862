package cpu

import "github.com/valerio/go-nescore/nescore/bit"

// readOp consumes an operand fetched from memory or the instruction stream.
type readOp func(c *CPU, value uint8)

// writeOp produces the byte stored at the effective address.
type writeOp func(c *CPU) uint8

// rmwOp transforms the byte at the effective address.
type rmwOp func(c *CPU, value uint8) uint8

// impliedOp works on registers only.
type impliedOp func(c *CPU)

// loads, logic and arithmetic

func lda(c *CPU, v uint8) { c.a = v; c.setZN(v) }
func ldx(c *CPU, v uint8) { c.x = v; c.setZN(v) }
func ldy(c *CPU, v uint8) { c.y = v; c.setZN(v) }
func ora(c *CPU, v uint8) { c.a |= v; c.setZN(c.a) }
func and(c *CPU, v uint8) { c.a &= v; c.setZN(c.a) }
func eor(c *CPU, v uint8) { c.a ^= v; c.setZN(c.a) }
func nopRead(*CPU, uint8) {}

// adc adds with carry in binary mode; the 2A03 has no decimal adder.
func adc(c *CPU, v uint8) {
	sum := uint16(c.a) + uint16(v) + uint16(c.flagToBit(carryFlag))
	result := uint8(sum)
	c.setFlagToCondition(carryFlag, sum > 0xFF)
	c.setFlagToCondition(overflowFlag, (c.a^result)&(v^result)&0x80 != 0)
	c.a = result
	c.setZN(result)
}

func sbc(c *CPU, v uint8) { adc(c, ^v) }

func (c *CPU) compare(register, v uint8) {
	c.setFlagToCondition(carryFlag, register >= v)
	c.setZN(register - v)
}

func cmp(c *CPU, v uint8) { c.compare(c.a, v) }
func cpx(c *CPU, v uint8) { c.compare(c.x, v) }
func cpy(c *CPU, v uint8) { c.compare(c.y, v) }

func bitTest(c *CPU, v uint8) {
	c.setFlagToCondition(zeroFlag, c.a&v == 0)
	c.setFlagToCondition(overflowFlag, bit.IsSet(6, v))
	c.setFlagToCondition(negativeFlag, bit.IsSet(7, v))
}

// stores

func sta(c *CPU) uint8 { return c.a }
func stx(c *CPU) uint8 { return c.x }
func sty(c *CPU) uint8 { return c.y }

// shifts, rotates, increments

func asl(c *CPU, v uint8) uint8 {
	c.setFlagToCondition(carryFlag, bit.IsSet(7, v))
	v <<= 1
	c.setZN(v)
	return v
}

func lsr(c *CPU, v uint8) uint8 {
	c.setFlagToCondition(carryFlag, bit.IsSet(0, v))
	v >>= 1
	c.setZN(v)
	return v
}

func rol(c *CPU, v uint8) uint8 {
	carry := c.flagToBit(carryFlag)
	c.setFlagToCondition(carryFlag, bit.IsSet(7, v))
	v = v<<1 | carry
	c.setZN(v)
	return v
}

func ror(c *CPU, v uint8) uint8 {
	carry := c.flagToBit(carryFlag) << 7
	c.setFlagToCondition(carryFlag, bit.IsSet(0, v))
	v = v>>1 | carry
	c.setZN(v)
	return v
}

func inc(c *CPU, v uint8) uint8 { v++; c.setZN(v); return v }
func dec(c *CPU, v uint8) uint8 { v--; c.setZN(v); return v }

// combined read-modify-write opcodes: the second effect sees the flags of
// the first, in hardware order

func slo(c *CPU, v uint8) uint8 { v = asl(c, v); ora(c, v); return v }
func rla(c *CPU, v uint8) uint8 { v = rol(c, v); and(c, v); return v }
func sre(c *CPU, v uint8) uint8 { v = lsr(c, v); eor(c, v); return v }
func rra(c *CPU, v uint8) uint8 { v = ror(c, v); adc(c, v); return v }
func dcp(c *CPU, v uint8) uint8 { v = dec(c, v); cmp(c, v); return v }
func isc(c *CPU, v uint8) uint8 { v = inc(c, v); sbc(c, v); return v }

// other undocumented opcodes

func lax(c *CPU, v uint8) { c.a = v; c.x = v; c.setZN(v) }
func sax(c *CPU) uint8    { return c.a & c.x }

func anc(c *CPU, v uint8) {
	and(c, v)
	c.setFlagToCondition(carryFlag, bit.IsSet(7, c.a))
}

func alr(c *CPU, v uint8) {
	c.a = lsr(c, c.a&v)
}

func arr(c *CPU, v uint8) {
	c.a &= v
	c.a = c.a>>1 | c.flagToBit(carryFlag)<<7
	c.setZN(c.a)
	c.setFlagToCondition(carryFlag, bit.IsSet(6, c.a))
	c.setFlagToCondition(overflowFlag, bit.IsSet(6, c.a) != bit.IsSet(5, c.a))
}

// axs (SBX) stores (A & X) - imm in X, setting flags like CMP.
func axs(c *CPU, v uint8) {
	ax := c.a & c.x
	c.setFlagToCondition(carryFlag, ax >= v)
	c.x = ax - v
	c.setZN(c.x)
}

func las(c *CPU, v uint8) {
	v &= c.s
	c.a, c.x, c.s = v, v, v
	c.setZN(v)
}

// The "magic constant" opcodes. Real chips OR A with a value that varies
// between parts and temperatures; 0xEE is used throughout.
const magic = 0xEE

func xaa(c *CPU, v uint8) {
	c.a = (c.a | magic) & c.x & v
	c.setZN(c.a)
}

func lxa(c *CPU, v uint8) {
	c.a = (c.a | magic) & v
	c.x = c.a
	c.setZN(c.a)
}

// unstableStore implements the SHA/SHX/SHY/TAS store: the value is ANDed
// with the high byte of the unindexed address plus one, and when indexing
// crossed a page that value also replaces the high byte of the target.
func (c *CPU) unstableStore(v uint8) uint8 {
	v &= bit.High(c.base) + 1
	if c.crossed {
		c.addr = bit.Combine(v, bit.Low(c.addr))
	}
	return v
}

func sha(c *CPU) uint8 { return c.unstableStore(c.a & c.x) }
func shx(c *CPU) uint8 { return c.unstableStore(c.x) }
func shy(c *CPU) uint8 { return c.unstableStore(c.y) }

func tas(c *CPU) uint8 {
	c.s = c.a & c.x
	return c.unstableStore(c.s)
}

// implied register operations

func tax(c *CPU) { c.x = c.a; c.setZN(c.x) }
func tay(c *CPU) { c.y = c.a; c.setZN(c.y) }
func txa(c *CPU) { c.a = c.x; c.setZN(c.a) }
func tya(c *CPU) { c.a = c.y; c.setZN(c.a) }
func tsx(c *CPU) { c.x = c.s; c.setZN(c.x) }
func txs(c *CPU) { c.s = c.x }
func inx(c *CPU) { c.x++; c.setZN(c.x) }
func iny(c *CPU) { c.y++; c.setZN(c.y) }
func dex(c *CPU) { c.x--; c.setZN(c.x) }
func dey(c *CPU) { c.y--; c.setZN(c.y) }
func clc(c *CPU) { c.resetFlag(carryFlag) }
func sec(c *CPU) { c.setFlag(carryFlag) }
func cli(c *CPU) { c.resetFlag(interruptFlag) }
func sei(c *CPU) { c.setFlag(interruptFlag) }
func cld(c *CPU) { c.resetFlag(decimalFlag) }
func sed(c *CPU) { c.setFlag(decimalFlag) }
func clv(c *CPU) { c.resetFlag(overflowFlag) }
func nop(*CPU)   {}

// branch conditions

func bpl(c *CPU) bool { return !c.isSetFlag(negativeFlag) }
func bmi(c *CPU) bool { return c.isSetFlag(negativeFlag) }
func bvc(c *CPU) bool { return !c.isSetFlag(overflowFlag) }
func bvs(c *CPU) bool { return c.isSetFlag(overflowFlag) }
func bcc(c *CPU) bool { return !c.isSetFlag(carryFlag) }
func bcs(c *CPU) bool { return c.isSetFlag(carryFlag) }
func bne(c *CPU) bool { return !c.isSetFlag(zeroFlag) }
func beq(c *CPU) bool { return c.isSetFlag(zeroFlag) }

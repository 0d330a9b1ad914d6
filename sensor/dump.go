package sensor

import (
	"context"
	"fmt"

	"github.com/mklimuk/vdec"
)

// PageRegister selects the register page on both decoder families.
const PageRegister = 0x40

// Bus is a register bus with its exclusive lock.
type Bus interface {
	vdec.RegisterBus
	vdec.Locker
}

// Dump selects the page and reads the listed registers under the bus lock.
func Dump(ctx context.Context, bus Bus, page byte, addrs []byte) (Program, error) {
	bus.Lock()
	defer bus.Unlock()
	if err := bus.WriteReg(ctx, PageRegister, page); err != nil {
		return nil, fmt.Errorf("sensor: select page %#02x: %w", page, err)
	}
	res := make(Program, 0, len(addrs))
	for _, a := range addrs {
		v, err := bus.ReadReg(ctx, a)
		if err != nil {
			return res, fmt.Errorf("sensor: dump page %#02x register %#02x: %w", page, a, err)
		}
		res = append(res, RegVal{Addr: a, Val: v})
	}
	return res, nil
}

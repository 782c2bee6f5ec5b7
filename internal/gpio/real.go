//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/reflow-oven/internal/logic"
)

// Chip is the GPIO character device used for all lines.
const Chip = "gpiochip0"

// ButtonDebounce filters contact bounce on the push buttons.
const ButtonDebounce = 50 * time.Millisecond

// RealRelay drives the heater relay from an output line.
type RealRelay struct {
	line *gpiocdev.Line
}

// NewRealRelay requests the relay line as an output, initially off.
func NewRealRelay(pin int) (*RealRelay, error) {
	line, err := gpiocdev.RequestLine(Chip, pin, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
	}
	return &RealRelay{line: line}, nil
}

// Set energizes or releases the relay.
func (r *RealRelay) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay: %w", err)
	}
	return nil
}

// Close drives the relay off, then reconfigures the pin to input with
// pull-down (matching Pi boot defaults) so the SSR stays off while the
// process is gone.
func (r *RealRelay) Close() error {
	var errs []error
	if err := r.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive relay off: %w", err))
	}
	if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
	}
	if err := r.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay pin: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealThermocouple reads a MAX6675 by bit-banging its 3-wire interface.
type RealThermocouple struct {
	clk *gpiocdev.Line
	cs  *gpiocdev.Line
	do  *gpiocdev.Line
}

// NewRealThermocouple requests the CLK, CS and DO lines.
func NewRealThermocouple(pinCLK, pinCS, pinDO int) (*RealThermocouple, error) {
	clk, err := gpiocdev.RequestLine(Chip, pinCLK, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request CLK pin %d: %w", pinCLK, err)
	}

	cs, err := gpiocdev.RequestLine(Chip, pinCS, gpiocdev.AsOutput(1))
	if err != nil {
		clk.Close()
		return nil, fmt.Errorf("request CS pin %d: %w", pinCS, err)
	}

	do, err := gpiocdev.RequestLine(Chip, pinDO, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		cs.Close()
		clk.Close()
		return nil, fmt.Errorf("request DO pin %d: %w", pinDO, err)
	}

	return &RealThermocouple{clk: clk, cs: cs, do: do}, nil
}

// Read clocks one 16-bit frame out of the MAX6675 and decodes it.
// The chip needs ~220ms between conversions; the control tick is far longer.
func (t *RealThermocouple) Read() (logic.SensorSample, error) {
	raw, err := t.frame()
	// Always deselect, even on error, so the next conversion starts.
	if csErr := t.cs.SetValue(1); err == nil && csErr != nil {
		err = fmt.Errorf("deselect: %w", csErr)
	}
	if err != nil {
		return logic.InvalidSample, err
	}
	return DecodeMAX6675(raw), nil
}

func (t *RealThermocouple) frame() (uint16, error) {
	if err := t.cs.SetValue(0); err != nil {
		return 0, fmt.Errorf("select: %w", err)
	}
	time.Sleep(time.Microsecond)

	var raw uint16
	for i := 15; i >= 0; i-- {
		if err := t.clk.SetValue(0); err != nil {
			return 0, fmt.Errorf("clock low: %w", err)
		}
		time.Sleep(time.Microsecond)
		v, err := t.do.Value()
		if err != nil {
			return 0, fmt.Errorf("read DO: %w", err)
		}
		if v != 0 {
			raw |= 1 << uint(i)
		}
		if err := t.clk.SetValue(1); err != nil {
			return 0, fmt.Errorf("clock high: %w", err)
		}
		time.Sleep(time.Microsecond)
	}
	return raw, nil
}

// Close releases the thermocouple lines.
func (t *RealThermocouple) Close() error {
	var errs []error
	for name, l := range map[string]*gpiocdev.Line{"CLK": t.clk, "CS": t.cs, "DO": t.do} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButtons watches the start and abort push buttons and reports each
// debounced press. Buttons pull the line high when pressed.
type RealButtons struct {
	lines []*gpiocdev.Line
}

// NewRealButtons requests the button lines with rising-edge events.
// A pin of 0 disables that button. onPress is called from the gpiocdev
// event goroutine and must not block.
func NewRealButtons(pinStart, pinAbort int, onPress func(logic.Command)) (*RealButtons, error) {
	b := &RealButtons{}
	for _, btn := range []struct {
		pin int
		cmd logic.Command
	}{
		{pinStart, logic.CommandStart},
		{pinAbort, logic.CommandAbort},
	} {
		if btn.pin == 0 {
			continue
		}
		cmd := btn.cmd
		line, err := gpiocdev.RequestLine(Chip, btn.pin,
			gpiocdev.AsInput,
			gpiocdev.WithPullDown,
			gpiocdev.WithRisingEdge,
			gpiocdev.WithDebounce(ButtonDebounce),
			gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) {
				onPress(cmd)
			}))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s button pin %d: %w", cmd, btn.pin, err)
		}
		b.lines = append(b.lines, line)
	}
	return b, nil
}

// Close releases the button lines.
func (b *RealButtons) Close() error {
	var errs []error
	for _, l := range b.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.lines = nil
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

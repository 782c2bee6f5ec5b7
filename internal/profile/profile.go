// Package profile loads the reflow profile library from YAML and converts
// the selected profile into tick counts for the controller.
package profile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/reflow-oven/internal/logic"
)

var (
	// ErrUnknownProfile is returned when no profile has the requested name.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrInvalidProfile is returned when a profile cannot be run.
	ErrInvalidProfile = errors.New("invalid profile")
)

// Library is the on-disk profile configuration.
type Library struct {
	HysteresisC float64   `yaml:"hysteresis_c"`
	AmbientC    float64   `yaml:"ambient_c"`
	Selected    string    `yaml:"selected"`
	Profiles    []Profile `yaml:"profiles"`
}

// Profile is one named reflow curve.
type Profile struct {
	Name     string `yaml:"name"`
	Preheat  Stage  `yaml:"preheat"`
	Soak     Stage  `yaml:"soak"`
	Reflow   Stage  `yaml:"reflow"`
	Cooldown Stage  `yaml:"cooldown"`
}

// Stage is a target temperature held for a wall-clock duration.
type Stage struct {
	TargetC  float64       `yaml:"target_c"`
	Duration time.Duration `yaml:"duration"`
}

// Default returns the built-in library. Names follow the profiles offered on
// the oven's touchscreen.
func Default() *Library {
	return &Library{
		HysteresisC: logic.DefaultHysteresis,
		AmbientC:    25,
		Selected:    "Profil1",
		Profiles: []Profile{
			{
				// Sn63/Pb37 leaded paste
				Name:     "Profil1",
				Preheat:  Stage{TargetC: 150, Duration: 90 * time.Second},
				Soak:     Stage{TargetC: 180, Duration: 90 * time.Second},
				Reflow:   Stage{TargetC: 225, Duration: 45 * time.Second},
				Cooldown: Stage{TargetC: 25, Duration: 120 * time.Second},
			},
			{
				// SAC305 lead-free paste
				Name:     "Profil2",
				Preheat:  Stage{TargetC: 150, Duration: 100 * time.Second},
				Soak:     Stage{TargetC: 200, Duration: 90 * time.Second},
				Reflow:   Stage{TargetC: 245, Duration: 60 * time.Second},
				Cooldown: Stage{TargetC: 25, Duration: 150 * time.Second},
			},
			{
				Name:     "Graka",
				Preheat:  Stage{TargetC: 150, Duration: 120 * time.Second},
				Soak:     Stage{TargetC: 190, Duration: 120 * time.Second},
				Reflow:   Stage{TargetC: 240, Duration: 60 * time.Second},
				Cooldown: Stage{TargetC: 25, Duration: 180 * time.Second},
			},
			{
				Name:     "Mainboard",
				Preheat:  Stage{TargetC: 150, Duration: 120 * time.Second},
				Soak:     Stage{TargetC: 185, Duration: 100 * time.Second},
				Reflow:   Stage{TargetC: 235, Duration: 50 * time.Second},
				Cooldown: Stage{TargetC: 25, Duration: 180 * time.Second},
			},
			{
				// Low-temperature bench profile (soak 59 °C / 102 s, reflow 80 °C / 222 s)
				Name:     "Raspberry",
				Preheat:  Stage{TargetC: 40, Duration: 60 * time.Second},
				Soak:     Stage{TargetC: 59, Duration: 102 * time.Second},
				Reflow:   Stage{TargetC: 80, Duration: 222 * time.Second},
				Cooldown: Stage{TargetC: 25, Duration: 60 * time.Second},
			},
		},
	}
}

// Load loads the library from a YAML file. If the file doesn't exist, the
// default library is returned.
func Load(filename string) (*Library, error) {
	lib := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	if err := yaml.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("parse profile file: %w", err)
	}

	lib.ensureDefaults()

	return lib, nil
}

// Save writes the library to a YAML file.
func (l *Library) Save(filename string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write profile file: %w", err)
	}

	return nil
}

func (l *Library) ensureDefaults() {
	d := Default()
	if l.HysteresisC <= 0 {
		l.HysteresisC = d.HysteresisC
	}
	if len(l.Profiles) == 0 {
		l.Profiles = d.Profiles
	}
	if l.Selected == "" {
		l.Selected = l.Profiles[0].Name
	}
}

// Names returns the profile names in file order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Profiles))
	for _, p := range l.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// Find returns the profile with the given name. An empty name selects
// l.Selected.
func (l *Library) Find(name string) (Profile, error) {
	if name == "" {
		name = l.Selected
	}
	for _, p := range l.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%q: %w", name, ErrUnknownProfile)
}

// Compile converts the named profile to tick counts for the given tick period.
// Durations round to the nearest tick; a stage shorter than one tick is an error.
func (l *Library) Compile(name string, tick time.Duration) (logic.Profile, error) {
	if tick <= 0 {
		return logic.Profile{}, fmt.Errorf("tick period %v: %w", tick, ErrInvalidProfile)
	}
	p, err := l.Find(name)
	if err != nil {
		return logic.Profile{}, err
	}

	lp := logic.Profile{
		Name:     p.Name,
		AmbientC: l.AmbientC,
		Preheat:  p.Preheat.spec(tick),
		Soak:     p.Soak.spec(tick),
		Reflow:   p.Reflow.spec(tick),
		Cooldown: p.Cooldown.spec(tick),
	}
	if err := lp.Validate(); err != nil {
		return logic.Profile{}, fmt.Errorf("%q: %v: %w", p.Name, err, ErrInvalidProfile)
	}
	return lp, nil
}

func (s Stage) spec(tick time.Duration) logic.PhaseSpec {
	return logic.PhaseSpec{
		TargetC:       s.TargetC,
		DurationTicks: int(math.Round(float64(s.Duration) / float64(tick))),
	}
}

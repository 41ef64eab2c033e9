package tax

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var defaultAliases = map[string]string{
	"UK":  "GB",
	"GBR": "GB",
	"USA": "US",
	"NGA": "NG",
	"RSA": "ZA",
	"ZAF": "ZA",
}

// Canonical maps a country code or one of the built-in aliases to the
// ISO 3166 alpha-2 code the modules register under.
func Canonical(country string) string {
	code := strings.ToUpper(strings.TrimSpace(country))
	if c, ok := defaultAliases[code]; ok {
		return c
	}
	return code
}

// Dispatcher routes a country code to its registered module. Unknown codes
// go to the fallback so a calculation is always possible.
type Dispatcher struct {
	mu       sync.RWMutex
	modules  map[string]Module
	aliases  map[string]string
	fallback Module
	logger   *zap.Logger
}

func NewDispatcher(fallback Module) *Dispatcher {
	aliases := make(map[string]string, len(defaultAliases))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	return &Dispatcher{
		modules:  make(map[string]Module),
		aliases:  aliases,
		fallback: fallback,
		logger:   zap.L().Named("tax.dispatcher"),
	}
}

// NewDefaultDispatcher registers the built-in jurisdictions.
func NewDefaultDispatcher(rates GenericRates) *Dispatcher {
	d := NewDispatcher(NewGenericModule(rates))
	d.Register(NewUKModule())
	d.Register(NewUSModule())
	d.Register(NewNGModule())
	d.Register(NewZAModule())
	return d
}

func (d *Dispatcher) Register(m Module) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modules[strings.ToUpper(m.Code())] = m
}

func (d *Dispatcher) RegisterAlias(alias, canonical string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aliases[strings.ToUpper(alias)] = strings.ToUpper(canonical)
}

func (d *Dispatcher) Canonical(country string) string {
	code := strings.ToUpper(strings.TrimSpace(country))
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.aliases[code]; ok {
		return c
	}
	return code
}

// Route returns the module for country and whether the fallback was used.
func (d *Dispatcher) Route(country string) (Module, bool) {
	code := d.Canonical(country)
	d.mu.RLock()
	m, ok := d.modules[code]
	d.mu.RUnlock()
	if ok {
		return m, false
	}
	return d.fallback, true
}

func (d *Dispatcher) Calculate(country string, base decimal.Decimal, freq Frequency, tc Context) (Result, error) {
	m, fallback := d.Route(country)
	res, err := Calculate(m, base, freq, tc)
	if err != nil {
		return Result{}, err
	}

	if fallback {
		res.UsedFallback = true
		d.logger.Warn("no tax module for country, using fallback",
			zap.String("country", country),
			zap.String("module", m.Code()),
		)
	}
	return res, nil
}

package source

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

var (
	demoAirlines = []string{
		"BAW", "RYR", "EZY", "VIR", "DLH", "AFR", "KLM", "UAE",
		"QTR", "SAS", "IBE", "ACA", "AAL", "UAL", "DAL",
	}
	demoAircraft = []string{
		"A320", "A321", "A319", "A380", "A350", "B738", "B739", "B77W",
		"B787", "B744", "E190", "E195", "CRJ9", "AT76", "DH8D",
	}
	demoAirports = []string{
		"LHR", "LGW", "STN", "LTN", "MAN", "BHX", "EDI", "GLA", "BRS", "NCL",
		"CDG", "AMS", "FRA", "MAD", "BCN", "FCO", "JFK", "LAX", "DXB", "SIN",
		"HKG", "DOH", "IST", "ZRH", "VIE", "CPH", "OSL", "ARN", "HEL", "DUB",
	}
)

const (
	demoDefaultFlights = 25
	demoMinFlights     = 15
	demoMaxFlights     = 35
	demoLimit          = 100

	// demoStep is the simulated time each Fetch advances the traffic by.
	demoStep = 10 * time.Second
)

// DemoConfig configures the synthetic source.
type DemoConfig struct {
	Region flight.Region

	// Flights is the initial fleet size. Zero means 25.
	Flights int

	// Limit caps the flights returned per fetch. Zero means 100.
	Limit int

	// Seed makes the traffic reproducible. Zero seeds from the clock.
	Seed uint64
}

// Demo is a [flight.Source] that simulates traffic around a region center
// without any network access. Flights move along their heading on every
// fetch, respawn once they drift beyond 1.5x the radius, and the fleet
// occasionally grows or shrinks. The requested bounds are ignored.
type Demo struct {
	mu      sync.Mutex
	rng     *rand.Rand
	region  flight.Region
	limit   int
	flights []flight.Flight
	nextID  int
}

// NewDemo creates a demo source.
func NewDemo(cfg DemoConfig) *Demo {
	if cfg.Flights <= 0 {
		cfg.Flights = demoDefaultFlights
	}
	if cfg.Limit <= 0 {
		cfg.Limit = demoLimit
	}
	if cfg.Region.RadiusKm <= 0 {
		cfg.Region.RadiusKm = 100
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	d := &Demo{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		region: cfg.Region,
		limit:  cfg.Limit,
	}
	d.flights = make([]flight.Flight, 0, cfg.Flights)
	for i := 0; i < cfg.Flights; i++ {
		d.flights = append(d.flights, d.spawn(i))
	}
	d.nextID = cfg.Flights
	return d
}

// Fetch advances the simulation one step and returns up to Limit flights.
func (d *Demo) Fetch(ctx context.Context, _ flight.BoundingBox) ([]flight.Flight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i, f := range d.flights {
		d.flights[i] = d.advance(f)
	}

	if d.rng.Float64() < 0.1 {
		if len(d.flights) > demoMinFlights && d.rng.Float64() < 0.5 {
			i := d.rng.IntN(len(d.flights))
			d.flights = slices.Delete(d.flights, i, i+1)
		} else if len(d.flights) < demoMaxFlights {
			d.flights = append(d.flights, d.spawn(d.nextID))
			d.nextID++
		}
	}

	n := min(len(d.flights), d.limit)
	out := make([]flight.Flight, n)
	copy(out, d.flights[:n])
	return out, nil
}

// Len returns the current fleet size.
func (d *Demo) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.flights)
}

func (d *Demo) advance(f flight.Flight) flight.Flight {
	if f.GroundSpeed <= 0 {
		return f
	}

	speedKmh := float64(f.GroundSpeed) * 1.852
	moveKm := speedKmh * demoStep.Hours()
	heading := float64(f.Heading) * math.Pi / 180

	lat := f.Latitude + (moveKm/111.0)*math.Cos(heading)
	lon := f.Longitude + (moveKm/(111.0*math.Cos(f.Latitude*math.Pi/180)))*math.Sin(heading)

	if d.region.DistanceKm(lat, lon) > d.region.RadiusKm*1.5 {
		return d.respawn(f.ID)
	}

	f.Latitude = lat
	f.Longitude = lon
	f.Altitude = max(0, f.Altitude+d.between(-100, 100))
	f.GroundSpeed = max(0, f.GroundSpeed+d.between(-5, 5))
	f.Heading = ((f.Heading+d.between(-2, 2))%360 + 360) % 360
	return f
}

// respawn replaces a departed flight, keeping its ID slot.
func (d *Demo) respawn(id string) flight.Flight {
	var idx int
	if _, err := fmt.Sscanf(id, "DEMO%d", &idx); err != nil {
		idx = d.nextID
		d.nextID++
	}
	return d.spawn(idx)
}

func (d *Demo) spawn(index int) flight.Flight {
	angle := d.rng.Float64() * 2 * math.Pi
	dist := 5 + d.rng.Float64()*(d.region.RadiusKm-5)

	lat := d.region.CenterLat + (dist/111.0)*math.Cos(angle)
	lon := d.region.CenterLon + (dist/(111.0*math.Cos(d.region.CenterLat*math.Pi/180)))*math.Sin(angle)

	airline := pick(d.rng, demoAirlines)
	origin := pick(d.rng, demoAirports)
	dest := origin
	for dest == origin {
		dest = pick(d.rng, demoAirports)
	}

	var altitude int
	switch d.rng.IntN(3) {
	case 0:
		altitude = 0
	case 1:
		altitude = d.between(2000, 8000)
	default:
		altitude = d.between(28000, 41000)
	}

	var speed int
	switch {
	case altitude == 0:
		speed = d.between(0, 30)
	case altitude < 10000:
		speed = d.between(180, 280)
	default:
		speed = d.between(380, 520)
	}

	reg := make([]byte, 4)
	for i := range reg {
		reg[i] = byte('A' + d.rng.IntN(26))
	}

	return flight.Flight{
		ID:           fmt.Sprintf("DEMO%04d", index),
		Callsign:     fmt.Sprintf("%s%d", airline, d.between(100, 9999)),
		Airline:      airline,
		AircraftType: pick(d.rng, demoAircraft),
		Origin:       origin,
		Destination:  dest,
		Registration: "G-" + string(reg),
		Latitude:     lat,
		Longitude:    lon,
		Altitude:     altitude,
		GroundSpeed:  speed,
		Heading:      d.rng.IntN(360),
	}
}

// between returns a uniform int in [lo, hi].
func (d *Demo) between(lo, hi int) int {
	return lo + d.rng.IntN(hi-lo+1)
}

func pick(rng *rand.Rand, xs []string) string {
	return xs[rng.IntN(len(xs))]
}

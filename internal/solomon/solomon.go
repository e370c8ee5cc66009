// Package solomon reads VRPTW instances in the Solomon benchmark text format.
package solomon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vrptw/internal/opt"
)

// ErrNoCustomerSection is returned when the input has no CUSTOMER marker line.
var ErrNoCustomerSection = errors.New("solomon: no CUSTOMER section")

// ParseError reports a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("solomon: line %d: %s", e.Line, e.Msg) }

// Instance is a parsed benchmark file. VehicleNumber and Capacity are zero when
// the file has no VEHICLE header.
type Instance struct {
	Name          string
	VehicleNumber int
	Capacity      float64
	Customers     []opt.Customer
}

// Problem builds the solver input. A non-positive capacity or vehicle count
// falls back to the file header.
func (in *Instance) Problem(capacity float64, maxVehicles int) opt.Problem {
	if capacity <= 0 {
		capacity = in.Capacity
	}
	if maxVehicles <= 0 {
		maxVehicles = in.VehicleNumber
	}
	return opt.Problem{Customers: opt.NewCustomers(in.Customers), Capacity: capacity, MaxVehicles: maxVehicles}
}

// Stem is the file name without directory and extension, e.g. "C101" for data/C101.txt.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load parses the file at path. The instance name defaults to the file stem
// when the file does not start with one.
func Load(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	in, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if in.Name == "" {
		in.Name = Stem(path)
	}
	return in, nil
}

type section int

const (
	sectionHead section = iota
	sectionVehicle
	sectionCustomer
)

// Parse reads a Solomon instance. Inside the CUSTOMER section every non-blank
// line must carry the seven fields id, x, y, demand, ready, due and service,
// except for a single column heading before the first row.
func Parse(r io.Reader) (*Instance, error) {
	in := &Instance{}
	sc := bufio.NewScanner(r)
	sec := sectionHead
	seen := map[int]bool{}
	heading := false
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch upper := strings.ToUpper(fields[0]); {
		case upper == "VEHICLE":
			sec = sectionVehicle
			continue
		case upper == "CUSTOMER":
			sec = sectionCustomer
			continue
		}
		if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
			if sec == sectionCustomer {
				// one column heading may precede the first row; anything else is a broken row
				if heading || len(in.Customers) > 0 || anyNumber(fields) {
					return nil, &ParseError{Line: n, Msg: fmt.Sprintf("customer id %q: not a number", fields[0])}
				}
				heading = true
				continue
			}
			if sec == sectionHead && in.Name == "" {
				in.Name = line
			}
			continue
		}
		switch sec {
		case sectionHead:
			continue
		case sectionVehicle:
			if len(fields) < 2 {
				return nil, &ParseError{Line: n, Msg: "vehicle line needs NUMBER and CAPACITY"}
			}
			v, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, &ParseError{Line: n, Msg: "vehicle number: " + err.Error()}
			}
			c, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, &ParseError{Line: n, Msg: "capacity: " + err.Error()}
			}
			in.VehicleNumber, in.Capacity = v, c
		case sectionCustomer:
			c, err := parseCustomer(fields)
			if err != nil {
				return nil, &ParseError{Line: n, Msg: err.Error()}
			}
			if seen[c.ID] {
				return nil, &ParseError{Line: n, Msg: fmt.Sprintf("duplicate customer %d", c.ID)}
			}
			seen[c.ID] = true
			in.Customers = append(in.Customers, c)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if sec != sectionCustomer {
		return nil, ErrNoCustomerSection
	}
	if !seen[opt.Depot] {
		return nil, fmt.Errorf("solomon: depot (customer %d) missing", opt.Depot)
	}
	return in, nil
}

// maxID bounds customer IDs so the conversion to int is exact on every platform.
const maxID = math.MaxInt32

func anyNumber(fields []string) bool {
	for _, f := range fields {
		if _, err := strconv.ParseFloat(f, 64); err == nil {
			return true
		}
	}
	return false
}

func parseCustomer(fields []string) (opt.Customer, error) {
	if len(fields) != 7 {
		return opt.Customer{}, fmt.Errorf("want 7 fields, got %d", len(fields))
	}
	var v [7]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return opt.Customer{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return opt.Customer{}, fmt.Errorf("field %d: not a finite number", i+1)
		}
		v[i] = x
	}
	if v[0] != math.Trunc(v[0]) || v[0] < 0 || v[0] > maxID {
		return opt.Customer{}, fmt.Errorf("customer id %v is not an integer in [0, %d]", v[0], maxID)
	}
	c := opt.Customer{ID: int(v[0]), X: v[1], Y: v[2], Demand: v[3], Ready: v[4], Due: v[5], Service: v[6]}
	if c.Ready > c.Due {
		return opt.Customer{}, fmt.Errorf("customer %d: ready time %v after due date %v", c.ID, c.Ready, c.Due)
	}
	if c.Demand < 0 || c.Service < 0 {
		return opt.Customer{}, fmt.Errorf("customer %d: negative demand or service time", c.ID)
	}
	return c, nil
}

package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/insighthub/pkg/dataset"
	"github.com/mesh-intelligence/insighthub/pkg/dateid"
	"github.com/mesh-intelligence/insighthub/pkg/types"
)

//go:embed seed.yaml
var seedYAML []byte

// Fixed generator state so every seed run produces the same series.
const (
	seedStateA = 0x1b5a1e
	seedStateB = 0x2c0ffee
)

type seedFile struct {
	FactDays  int `yaml:"fact_days"`
	DateRange struct {
		BackDays  int `yaml:"back_days"`
		AheadDays int `yaml:"ahead_days"`
	} `yaml:"date_range"`
	Departments []types.Department `yaml:"departments"`
	Persons     []types.Person     `yaml:"persons"`
	KPIs        []seedKPI          `yaml:"kpis"`
	WorkItems   []seedWorkItem     `yaml:"work_items"`
	Users       []seedUser         `yaml:"users"`
}

type seedKPI struct {
	types.KPI `yaml:",inline"`
	Target    float64    `yaml:"target"`
	Series    seedSeries `yaml:"series"`
}

// seedSeries generates start + slope*day + noise, clamped to [Floor, Ceil].
type seedSeries struct {
	Noise string   `yaml:"noise"` // "int" for whole numbers, uniform otherwise
	Start float64  `yaml:"start"`
	Slope float64  `yaml:"slope"`
	Low   float64  `yaml:"low"`
	High  float64  `yaml:"high"`
	Floor *float64 `yaml:"floor"`
	Ceil  *float64 `yaml:"ceil"`
}

func (s seedSeries) value(rng *rand.Rand, day int) float64 {
	var noise float64
	if s.Noise == "int" {
		lo, hi := int(s.Low), int(s.High)
		noise = float64(lo + rng.IntN(hi-lo+1))
	} else {
		noise = s.Low + rng.Float64()*(s.High-s.Low)
	}
	v := s.Start + s.Slope*float64(day) + noise
	if s.Floor != nil {
		v = math.Max(v, *s.Floor)
	}
	if s.Ceil != nil {
		v = math.Min(v, *s.Ceil)
	}
	return v
}

type seedWorkItem struct {
	DeptID          string  `yaml:"dept_id"`
	Title           string  `yaml:"work_title"`
	WorkType        string  `yaml:"work_type"`
	Priority        string  `yaml:"priority"`
	Status          string  `yaml:"status"`
	ProgressPercent float64 `yaml:"progress_percent"`
	RiskLevel       string  `yaml:"risk_level"`
	StartOffset     int     `yaml:"start_offset"`
	DueOffset       int     `yaml:"due_offset"`
}

type seedUser struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
	DeptID       string `yaml:"dept_id"`
	PersonID     string `yaml:"person_id"`
}

// SeedStats counts the rows a seed run wrote.
type SeedStats struct {
	Departments int `json:"departments"`
	Persons     int `json:"persons"`
	KPIs        int `json:"kpis"`
	Facts       int `json:"kpi_facts"`
	WorkItems   int `json:"work_items"`
	Users       int `json:"users"`
	Dates       int `json:"dates_created"`
}

// SeedDemo replaces the master data, KPI facts, work items and users with the
// demo dataset, with facts ending on today. Other tables are left alone.
func (b *Backend) SeedDemo(ctx context.Context, today time.Time) (SeedStats, error) {
	var sf seedFile
	if err := yaml.Unmarshal(seedYAML, &sf); err != nil {
		return SeedStats{}, fmt.Errorf("parsing seed data: %w", err)
	}
	y, m, d := today.Date()
	today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	data, err := sf.tables(today)
	if err != nil {
		return SeedStats{}, err
	}

	var stats SeedStats
	err = b.withTx(ctx, func(tx *sql.Tx) error {
		days := dateid.Days(today.AddDate(0, 0, -sf.DateRange.BackDays), today.AddDate(0, 0, sf.DateRange.AheadDays))
		n, err := insertDays(ctx, tx, days)
		if err != nil {
			return err
		}
		stats.Dates = n

		for _, name := range []string{
			types.TableDepartment, types.TablePerson, types.TableKPI,
			types.TableKPIFact, types.TableWorkItem, types.TableUser,
		} {
			t := b.tables[name]
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
				return fmt.Errorf("clearing %s: %w", name, err)
			}
			if err := t.insertRows(ctx, tx, data[name]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}

	stats.Departments = data[types.TableDepartment].Len()
	stats.Persons = data[types.TablePerson].Len()
	stats.KPIs = data[types.TableKPI].Len()
	stats.Facts = data[types.TableKPIFact].Len()
	stats.WorkItems = data[types.TableWorkItem].Len()
	stats.Users = data[types.TableUser].Len()
	b.log.Info("demo data seeded", "facts", stats.Facts, "work_items", stats.WorkItems, "users", stats.Users)
	return stats, nil
}

// tables renders the seed file into one dataset per target table.
func (sf seedFile) tables(today time.Time) (map[string]*dataset.Table, error) {
	text := func(s string) dataset.Value {
		if s == "" {
			return dataset.Null()
		}
		return dataset.Text(s)
	}
	out := map[string]*dataset.Table{
		types.TableDepartment: dataset.MustTable(textCols("dept_id", "dept_name", "dept_code", "description", "color")...),
		types.TablePerson:     dataset.MustTable(textCols("person_id", "person_name", "role", "department")...),
		types.TableKPI:        dataset.MustTable(textCols("kpi_id", "kpi_name", "dept_id", "unit", "target_direction")...),
		types.TableKPIFact: dataset.MustTable(
			dataset.Column{Name: "date_id", Kind: dataset.KindNumber},
			dataset.Column{Name: "dept_id", Kind: dataset.KindText},
			dataset.Column{Name: "kpi_id", Kind: dataset.KindText},
			dataset.Column{Name: "actual_value", Kind: dataset.KindNumber},
			dataset.Column{Name: "target_value", Kind: dataset.KindNumber},
		),
		types.TableWorkItem: dataset.MustTable(append(
			textCols("dept_id", "work_title", "work_type", "priority", "status", "risk_level"),
			dataset.Column{Name: "progress_percent", Kind: dataset.KindNumber},
			dataset.Column{Name: "start_date_id", Kind: dataset.KindNumber},
			dataset.Column{Name: "due_date_id", Kind: dataset.KindNumber},
		)...),
		types.TableUser: dataset.MustTable(append(
			textCols("username", "password_hash", "role", "dept_id", "person_id"),
			dataset.Column{Name: "is_enabled", Kind: dataset.KindNumber},
		)...),
	}

	for _, dep := range sf.Departments {
		if err := types.Validate(dep); err != nil {
			return nil, err
		}
		if err := out[types.TableDepartment].Append(text(dep.DeptID), text(dep.DeptName), text(dep.DeptCode),
			text(dep.Description), text(dep.Color)); err != nil {
			return nil, err
		}
	}
	for _, p := range sf.Persons {
		if err := out[types.TablePerson].Append(text(p.PersonID), text(p.PersonName), text(p.Role),
			text(p.Department)); err != nil {
			return nil, err
		}
	}
	for _, k := range sf.KPIs {
		if err := types.Validate(k.KPI); err != nil {
			return nil, err
		}
		if err := out[types.TableKPI].Append(text(k.KPIID), text(k.KPIName), text(k.DeptID), text(k.Unit),
			text(string(k.TargetDirection))); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewPCG(seedStateA, seedStateB))
	for i := 0; i < sf.FactDays; i++ {
		id := dateid.ToDateID(today.AddDate(0, 0, i-(sf.FactDays-1)))
		for _, k := range sf.KPIs {
			if err := out[types.TableKPIFact].Append(dataset.Number(float64(id)), text(k.DeptID), text(k.KPIID),
				dataset.Number(k.Series.value(rng, i)), dataset.Number(k.Target)); err != nil {
				return nil, err
			}
		}
	}

	for _, w := range sf.WorkItems {
		start := dateid.ToDateID(today.AddDate(0, 0, w.StartOffset))
		due := dateid.ToDateID(today.AddDate(0, 0, w.DueOffset))
		if err := out[types.TableWorkItem].Append(text(w.DeptID), text(w.Title), text(w.WorkType), text(w.Priority),
			text(w.Status), text(w.RiskLevel), dataset.Number(w.ProgressPercent),
			dataset.Number(float64(start)), dataset.Number(float64(due))); err != nil {
			return nil, err
		}
	}

	for _, u := range sf.Users {
		user := types.User{Username: u.Username, PasswordHash: u.PasswordHash, Role: types.Role(u.Role),
			DeptID: u.DeptID, PersonID: u.PersonID, Enabled: true}
		if err := user.Validate(); err != nil {
			return nil, err
		}
		if err := out[types.TableUser].Append(text(u.Username), text(u.PasswordHash), text(u.Role), text(u.DeptID),
			text(u.PersonID), dataset.Number(1)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func textCols(names ...string) []dataset.Column {
	cols := make([]dataset.Column, len(names))
	for i, n := range names {
		cols[i] = dataset.Column{Name: n, Kind: dataset.KindText}
	}
	return cols
}

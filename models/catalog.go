package models

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"gorm.io/gorm"
)

// Zone is a physical area of a center grouping related inspection concepts.
// Catalog rows are reference data: they change only with a deploy/seed run.
type Zone struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Icon        string    `gorm:"size:64" json:"icon"`
	Color       string    `gorm:"size:16" json:"color"`
	Description string    `gorm:"type:text" json:"description"`
	Concepts    []Concept `gorm:"foreignKey:ZoneId" json:"concepts"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Concept is one checkable item within a zone.
type Concept struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ZoneId    int       `gorm:"index;not null" json:"zone_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CatalogEntry is one cell of the zone×concept cross product. Every inspection
// is seeded with exactly one item per entry.
type CatalogEntry struct {
	ZoneId      int
	ZoneName    string
	ConceptId   int
	ConceptName string
}

var (
	catalogMu    sync.RWMutex
	catalogCache []CatalogEntry
)

const catalogRedisKey = "maintenance_catalog_v1"

// CatalogCrossProduct returns the full zone×concept item template. The catalog
// is read-only at runtime, so the first load is cached process-wide.
func CatalogCrossProduct(ctx context.Context) ([]CatalogEntry, error) {
	catalogMu.RLock()
	if catalogCache != nil {
		entries := catalogCache
		catalogMu.RUnlock()
		return entries, nil
	}
	catalogMu.RUnlock()

	entries, err := loadCatalogEntries(ctx)
	if err != nil {
		return nil, err
	}

	catalogMu.Lock()
	catalogCache = entries
	catalogMu.Unlock()

	// Warm copy for other instances; best-effort.
	_ = config.SetRedisObject(catalogRedisKey, entries, 24*time.Hour)

	return entries, nil
}

// InvalidateCatalogCache drops the process cache (seed tooling only).
func InvalidateCatalogCache() {
	catalogMu.Lock()
	catalogCache = nil
	catalogMu.Unlock()
	_ = config.RemoveRedisKey(catalogRedisKey)
}

func loadCatalogEntries(ctx context.Context) ([]CatalogEntry, error) {
	// Prefer the shared warm copy when present.
	var cached []CatalogEntry
	if ok, err := config.GetRedisObject(catalogRedisKey, &cached); err == nil && ok && len(cached) > 0 {
		return cached, nil
	}

	db := config.GetDB()
	var zones []Zone
	if err := db.WithContext(ctx).Preload("Concepts").Order("id ASC").Find(&zones).Error; err != nil {
		return nil, err
	}

	entries := make([]CatalogEntry, 0, len(zones)*4)
	for _, z := range zones {
		for _, c := range z.Concepts {
			entries = append(entries, CatalogEntry{
				ZoneId:      z.ID,
				ZoneName:    z.Name,
				ConceptId:   c.ID,
				ConceptName: c.Name,
			})
		}
	}
	return entries, nil
}

// CrossProductFromZones builds the template from already-loaded zones.
// Pure; the seeding and tests use it directly.
func CrossProductFromZones(zones []Zone) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(zones)*4)
	for _, z := range zones {
		for _, c := range z.Concepts {
			entries = append(entries, CatalogEntry{
				ZoneId:      z.ID,
				ZoneName:    z.Name,
				ConceptId:   c.ID,
				ConceptName: c.Name,
			})
		}
	}
	return entries
}

// DefaultCatalogZones is the shipped catalog: 9 zones, 3-4 concepts each.
// IDs are fixed so item natural keys stay stable across environments.
func DefaultCatalogZones() []Zone {
	return []Zone{
		{ID: 1, Name: "Vestuarios y duchas", Icon: "shower", Color: "#0EA5E9", Description: "Vestuarios, duchas y taquillas",
			Concepts: []Concept{
				{ID: 101, ZoneId: 1, Name: "Alcachofas de ducha"},
				{ID: 102, ZoneId: 1, Name: "Bancos y taquillas"},
				{ID: 103, ZoneId: 1, Name: "Desagües y ventilación"},
				{ID: 104, ZoneId: 1, Name: "Secadores y espejos"},
			}},
		{ID: 2, Name: "Sala de musculación", Icon: "dumbbell", Color: "#F97316", Description: "Máquinas de placas y peso libre",
			Concepts: []Concept{
				{ID: 201, ZoneId: 2, Name: "Cables y poleas"},
				{ID: 202, ZoneId: 2, Name: "Tapizados de bancos"},
				{ID: 203, ZoneId: 2, Name: "Discos y barras"},
				{ID: 204, ZoneId: 2, Name: "Suelo de goma"},
			}},
		{ID: 3, Name: "Zona cardio", Icon: "heart-pulse", Color: "#EF4444", Description: "Cintas, elípticas y bicicletas",
			Concepts: []Concept{
				{ID: 301, ZoneId: 3, Name: "Bandas de cintas de correr"},
				{ID: 302, ZoneId: 3, Name: "Pantallas y consolas"},
				{ID: 303, ZoneId: 3, Name: "Pedales y sillines"},
			}},
		{ID: 4, Name: "Piscina", Icon: "waves", Color: "#3B82F6", Description: "Vaso, playa y corcheras",
			Concepts: []Concept{
				{ID: 401, ZoneId: 4, Name: "Rejillas y desbordante"},
				{ID: 402, ZoneId: 4, Name: "Escaleras y pasamanos"},
				{ID: 403, ZoneId: 4, Name: "Corcheras y señalización"},
				{ID: 404, ZoneId: 4, Name: "Suelo antideslizante"},
			}},
		{ID: 5, Name: "Recepción", Icon: "door-open", Color: "#8B5CF6", Description: "Acceso, tornos y mostrador",
			Concepts: []Concept{
				{ID: 501, ZoneId: 5, Name: "Tornos de acceso"},
				{ID: 502, ZoneId: 5, Name: "Mostrador y cartelería"},
				{ID: 503, ZoneId: 5, Name: "Puertas automáticas"},
			}},
		{ID: 6, Name: "Salas colectivas", Icon: "users", Color: "#22C55E", Description: "Salas de clases dirigidas",
			Concepts: []Concept{
				{ID: 601, ZoneId: 6, Name: "Equipos de sonido"},
				{ID: 602, ZoneId: 6, Name: "Espejos y tarimas"},
				{ID: 603, ZoneId: 6, Name: "Material de clases"},
				{ID: 604, ZoneId: 6, Name: "Climatización de sala"},
			}},
		{ID: 7, Name: "Spa y sauna", Icon: "flame", Color: "#EAB308", Description: "Sauna, vapor e hidromasaje",
			Concepts: []Concept{
				{ID: 701, ZoneId: 7, Name: "Resistencias de sauna"},
				{ID: 702, ZoneId: 7, Name: "Generador de vapor"},
				{ID: 703, ZoneId: 7, Name: "Jets de hidromasaje"},
			}},
		{ID: 8, Name: "Exterior y parking", Icon: "car", Color: "#64748B", Description: "Fachada, accesos y parking",
			Concepts: []Concept{
				{ID: 801, ZoneId: 8, Name: "Iluminación exterior"},
				{ID: 802, ZoneId: 8, Name: "Señalización de parking"},
				{ID: 803, ZoneId: 8, Name: "Rótulo de fachada"},
			}},
		{ID: 9, Name: "Zona técnica", Icon: "wrench", Color: "#475569", Description: "Cuartos técnicos e instalaciones",
			Concepts: []Concept{
				{ID: 901, ZoneId: 9, Name: "Cuadros eléctricos"},
				{ID: 902, ZoneId: 9, Name: "Bombas y filtración"},
				{ID: 903, ZoneId: 9, Name: "Climatización central"},
				{ID: 904, ZoneId: 9, Name: "Detección de incendios"},
			}},
	}
}

// SeedCatalog inserts the default catalog when the zones table is empty.
// Idempotent: a non-empty table is left untouched.
func SeedCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Zone{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	zones := DefaultCatalogZones()
	if err := db.Create(&zones).Error; err != nil {
		return err
	}
	InvalidateCatalogCache()
	return nil
}

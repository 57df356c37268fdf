package entity

import (
	"errors"
	"sort"
)

// Errores de validación de la jerarquía.
var (
	ErrHierarchySelf    = errors.New("un usuario no puede reportarse a sí mismo")
	ErrHierarchyUnknown = errors.New("usuario desconocido en la jerarquía")
	ErrHierarchyCycle   = errors.New("ciclo en la jerarquía")
)

// Hierarchy árbol de reportes de una empresa como mapa hijo -> padre.
// Los reportes directos y el nivel se derivan; nunca se guardan por duplicado.
type Hierarchy struct {
	parent map[string]string
	known  map[string]bool
}

// NewHierarchy construye la jerarquía a partir de los miembros de una empresa.
// Los ReportsTo que apuntan fuera del conjunto se ignoran.
func NewHierarchy(users []*User) *Hierarchy {
	h := &Hierarchy{parent: map[string]string{}, known: map[string]bool{}}
	for _, u := range users {
		h.known[u.ID] = true
	}
	for _, u := range users {
		if u.ReportsTo != "" && h.known[u.ReportsTo] && u.ReportsTo != u.ID {
			h.parent[u.ID] = u.ReportsTo
		}
	}
	return h
}

// Parent devuelve el jefe directo ("" si no tiene).
func (h *Hierarchy) Parent(id string) string {
	return h.parent[id]
}

// SetParent asigna parent como jefe de child. parent vacío elimina la relación.
// Rechaza autorreferencias, ids desconocidos y ciclos.
func (h *Hierarchy) SetParent(child, parent string) error {
	if !h.known[child] {
		return ErrHierarchyUnknown
	}
	if parent == "" {
		delete(h.parent, child)
		return nil
	}
	if child == parent {
		return ErrHierarchySelf
	}
	if !h.known[parent] {
		return ErrHierarchyUnknown
	}
	for cur := parent; cur != ""; cur = h.parent[cur] {
		if cur == child {
			return ErrHierarchyCycle
		}
	}
	h.parent[child] = parent
	return nil
}

// DirectReports ids que reportan directamente a id, ordenados.
func (h *Hierarchy) DirectReports(id string) []string {
	var out []string
	for child, p := range h.parent {
		if p == id {
			out = append(out, child)
		}
	}
	sort.Strings(out)
	return out
}

// Depth distancia hasta la raíz (0 = sin jefe).
func (h *Hierarchy) Depth(id string) int {
	d := 0
	for cur := h.parent[id]; cur != ""; cur = h.parent[cur] {
		d++
	}
	return d
}

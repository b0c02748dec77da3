package models

import "github.com/google/uuid"

type Planet struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	SectorID int        `json:"sectorId"`
	OwnerID  *uuid.UUID `json:"ownerId,omitempty"`
}

type PortClass string

const PortSpecial PortClass = "special"

type Port struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	SectorID int       `json:"sectorId"`
	Class    PortClass `json:"class"`
}

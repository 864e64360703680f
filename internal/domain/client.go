package domain

import (
	"time"

	"github.com/google/uuid"
)

type ClientType string

const (
	ClientTypeLocal         ClientType = "local"
	ClientTypeInternational ClientType = "international"
)

type Client struct {
	ID        uuid.UUID
	Name      string
	Type      ClientType
	Country   string
	CreatedAt time.Time
}

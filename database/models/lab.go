// Copyright 2026 Karn Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

import "github.com/karn-labs/karn/database/types"

// LabStatus is the lifecycle state of a lab escrow
type LabStatus uint8

const (
	LabStatusActive    LabStatus = 0
	LabStatusCompleted LabStatus = 1
	LabStatusCancelled LabStatus = 2
)

func (s LabStatus) String() string {
	switch s {
	case LabStatusActive:
		return "active"
	case LabStatusCompleted:
		return "completed"
	case LabStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Lab is an escrow committed by a funder and paid out to approved
// recipients in fixed amounts
type Lab struct {
	ID                 uint64       `gorm:"primaryKey;autoIncrement:false"`
	Funder             string       `gorm:"index;not null"`
	TotalAmount        types.Amount `gorm:"not null"`
	PerRecipientAmount types.Amount `gorm:"not null"`
	AllocatedAmount    types.Amount `gorm:"not null"`
	Status             LabStatus    `gorm:"index;not null"`
	CreatedTime        uint64       `gorm:"not null"`
}

// TableName returns the table name
func (Lab) TableName() string {
	return "lab"
}

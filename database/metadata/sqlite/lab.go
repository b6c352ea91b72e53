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

package sqlite

import (
	"errors"

	"github.com/karn-labs/karn/database/models"
	"github.com/karn-labs/karn/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetLab retrieves a lab by ID. Returns nil if it does not exist.
func (d *MetadataStoreSqlite) GetLab(
	id uint64,
	txn types.Txn,
) (*models.Lab, error) {
	var lab models.Lab
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("id = ?", id).First(&lab); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &lab, nil
}

// GetLabs retrieves all labs ordered by ID
func (d *MetadataStoreSqlite) GetLabs(txn types.Txn) ([]models.Lab, error) {
	var labs []models.Lab
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Order("id").Find(&labs); result.Error != nil {
		return nil, result.Error
	}
	return labs, nil
}

// SetLab creates or updates a lab
func (d *MetadataStoreSqlite) SetLab(lab *models.Lab, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"allocated_amount",
			"status",
		}),
	}
	if result := db.Clauses(onConflict).Create(lab); result.Error != nil {
		return result.Error
	}
	return nil
}

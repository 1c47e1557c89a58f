/*
 * Copyright (C) 2024-2025, UFCG-LSD. All rights reserved.
 * See LICENSE for license information.
 */

package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// SubmissionPrefix is prepended to every generated submission id. The
// prefix doubles as the persistence key namespace, so prefix scans over
// the store only ever see submission records.
const SubmissionPrefix = "kj-"

// NewSubmissionId returns an opaque submission id of the form kj-<7 hex
// chars>. Collisions are theoretically possible but the id space is
// scoped to a single broker instance and ids of deleted submissions are
// never reused from the store.
func NewSubmissionId() string {
	return fmt.Sprintf("%s%s", SubmissionPrefix, uuid.New().String()[0:7])
}

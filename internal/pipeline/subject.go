// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"

	"github.com/ManuGH/auraxd/internal/events"
)

// Subject keys are the registry lookup keys derived from enriched events.

// OutfitSubject keys activity notifications by platform and outfit.
func OutfitSubject(p events.Platform, outfitID string) string {
	return fmt.Sprintf("outfit:%s:%s", p, outfitID)
}

// AlertSubject keys world-event notifications by platform and world.
func AlertSubject(p events.Platform, worldID string) string {
	return fmt.Sprintf("alerts:%s:%s", p, worldID)
}

// TerritorySubject keys facility-capture notifications by world and continent.
func TerritorySubject(worldID, continentID string) string {
	return fmt.Sprintf("territory:%s:%s", worldID, continentID)
}

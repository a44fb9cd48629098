package enrich

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/alma-slip-report/pkg/logging"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// ItemTask fetches the item record behind each copy.
type ItemTask struct {
	client Getter
	logger zerolog.Logger
}

// NewItemTask creates an item enrichment task.
func NewItemTask(client Getter) *ItemTask {
	return &ItemTask{
		client: client,
		logger: logging.NewLogger("enrich-item"),
	}
}

// Name implements Task.
func (t *ItemTask) Name() string { return "item" }

// Enrich returns one subtask per copy that has a link. The first copy also
// supplies the resource's complete edition.
func (t *ItemTask) Enrich(r *model.RequestedResource) []Subtask {
	var subtasks []Subtask
	for i, c := range r.Location.Copy {
		if c == nil || c.Link == "" {
			continue
		}
		first := i == 0
		subtasks = append(subtasks, instrument(t.Name(), func(ctx context.Context) error {
			var item model.Item
			if err := t.client.Get(ctx, c.Link, nil, &item); err != nil {
				return fmt.Errorf("fetch item %s: %w", c.Link, err)
			}
			applyItem(r, c, &item, first)
			return nil
		}))
	}
	return subtasks
}

func applyItem(r *model.RequestedResource, c *model.Copy, item *model.Item, first bool) {
	if first {
		r.ResourceMetadata.CompleteEdition = item.BibData.CompleteEdition
	}
	c.Description = item.ItemData.Description
	c.PhysicalMaterialType = item.ItemData.PhysicalMaterialType
	c.EnumerationA = item.ItemData.EnumerationA
	c.EnumerationB = item.ItemData.EnumerationB
	c.ChronologyI = item.ItemData.ChronologyI
	c.ChronologyJ = item.ItemData.ChronologyJ
	c.AccessionNumber = item.ItemData.AccessionNumber
	c.InTempLocation = item.HoldingData.InTempLocation
	c.TempLocation = item.HoldingData.TempLocation
}

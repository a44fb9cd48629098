package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/alma-slip-report/pkg/cache"
	"github.com/Sternrassler/alma-slip-report/pkg/model"
)

// UserTask attaches the requester's user group to each request.
type UserTask struct {
	client Getter
	users  *cache.Group[string, *model.User]
}

// NewUserTask creates a user enrichment task. Users are shared by URL for
// up to a minute.
func NewUserTask(client Getter) *UserTask {
	return &UserTask{
		client: client,
		users:  cache.NewGroup[string, *model.User]("user", 100, time.Minute),
	}
}

// Name implements Task.
func (t *UserTask) Name() string { return "user" }

// Enrich returns one subtask per request whose requester has a link.
func (t *UserTask) Enrich(r *model.RequestedResource) []Subtask {
	var subtasks []Subtask
	for _, req := range r.Request {
		if req == nil || req.Requester.Link == "" {
			continue
		}
		subtasks = append(subtasks, instrument(t.Name(), func(ctx context.Context) error {
			user, err := t.user(ctx, req.Requester.Link)
			if err != nil {
				return err
			}
			req.Requester.UserGroup = user.UserGroup
			return nil
		}))
	}
	return subtasks
}

func (t *UserTask) user(ctx context.Context, link string) (*model.User, error) {
	return t.users.Do(ctx, link, func(ctx context.Context) (*model.User, error) {
		var u model.User
		if err := t.client.Get(ctx, link, nil, &u); err != nil {
			return nil, fmt.Errorf("fetch user %s: %w", link, err)
		}
		return &u, nil
	})
}

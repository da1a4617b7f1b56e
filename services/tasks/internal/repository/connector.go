package repository

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// OpenFunc открывает новое соединение с хранилищем
type OpenFunc func(ctx context.Context) (Store, error)

// Connector лениво открывает Store один раз на процесс. Параллельные
// первые вызовы ждут одну и ту же попытку подключения; неудачная
// попытка не кэшируется.
type Connector struct {
	open  OpenFunc
	group singleflight.Group

	mu    sync.RWMutex
	store Store
}

func NewConnector(open OpenFunc) *Connector {
	return &Connector{open: open}
}

// Store возвращает открытое соединение, открывая его при первом вызове
func (c *Connector) Store(ctx context.Context) (Store, error) {
	if s := c.cached(); s != nil {
		return s, nil
	}

	v, err, _ := c.group.Do("store", func() (any, error) {
		if s := c.cached(); s != nil {
			return s, nil
		}
		// отмена запроса первого вызывающего не прерывает открытие
		s, err := c.open(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.store = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Store), nil
}

// Close закрывает соединение, если оно было открыто
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	s := c.store
	c.store = nil
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close(ctx)
}

func (c *Connector) cached() Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

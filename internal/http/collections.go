package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/mrlokans/posdz/internal/database"
	"github.com/mrlokans/posdz/internal/entities"
)

// recordStore is a collection with its record type erased so that one set
// of handlers can serve all of them. Only auto-id collections are exposed.
type recordStore interface {
	indexes() []string
	list(ctx context.Context) (any, error)
	byIndex(ctx context.Context, index, value string) (any, error)
	get(ctx context.Context, key uint) (any, bool, error)
	add(ctx context.Context, body []byte) (any, error)
	put(ctx context.Context, key uint, body []byte) (any, error)
	remove(ctx context.Context, key uint) error
}

type storeAdapter[T any, P interface {
	*T
	database.Record[uint]
}] struct {
	coll *database.Collection[uint, T, P]
}

func adapt[T any, P interface {
	*T
	database.Record[uint]
}](coll *database.Collection[uint, T, P]) recordStore {
	return storeAdapter[T, P]{coll: coll}
}

func (a storeAdapter[T, P]) indexes() []string {
	return a.coll.Indexes()
}

func (a storeAdapter[T, P]) list(ctx context.Context) (any, error) {
	return a.coll.GetAll(ctx)
}

func (a storeAdapter[T, P]) byIndex(ctx context.Context, index, value string) (any, error) {
	return a.coll.GetByIndex(ctx, index, value)
}

func (a storeAdapter[T, P]) get(ctx context.Context, key uint) (any, bool, error) {
	rec, found, err := a.coll.Get(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}
	return rec, true, nil
}

func (a storeAdapter[T, P]) add(ctx context.Context, body []byte) (any, error) {
	rec, err := decodeRecord[T, P](body, 0)
	if err != nil {
		return nil, err
	}
	if _, err := a.coll.Add(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a storeAdapter[T, P]) put(ctx context.Context, key uint, body []byte) (any, error) {
	rec, err := decodeRecord[T, P](body, key)
	if err != nil {
		return nil, err
	}
	if _, err := a.coll.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (a storeAdapter[T, P]) remove(ctx context.Context, key uint) error {
	return a.coll.Delete(ctx, key)
}

// errInvalidBody marks a request body that is not a JSON object of the
// collection's record.
var errInvalidBody = fmt.Errorf("%w: body must be a JSON object", database.ErrNilRecord)

// decodeRecord decodes body into a record. A non-zero key overrides any id
// in the body so the path always names the record written.
func decodeRecord[T any, P interface {
	*T
	database.Record[uint]
}](body []byte, key uint) (P, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, errInvalidBody
	}
	if key != 0 {
		fields["id"] = key
	}

	normalized, err := json.Marshal(fields)
	if err != nil {
		return nil, errInvalidBody
	}

	rec := P(new(T))
	if err := json.Unmarshal(normalized, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return rec, nil
}

// CollectionsController exposes the generic access layer over HTTP. Users,
// settings, the counter and the log have dedicated endpoints and are not
// reachable here.
type CollectionsController struct {
	stores map[string]recordStore
}

func NewCollectionsController(db *database.Database) *CollectionsController {
	return &CollectionsController{
		stores: map[string]recordStore{
			entities.CollectionProducts:  adapt(db.Products()),
			entities.CollectionFamilies:  adapt(db.Families()),
			entities.CollectionCustomers: adapt(db.Customers()),
			entities.CollectionSuppliers: adapt(db.Suppliers()),
			entities.CollectionSales:     adapt(db.Sales()),
			entities.CollectionSaleItems: adapt(db.SaleItems()),
			entities.CollectionDebts:     adapt(db.Debts()),
		},
	}
}

// Names returns the exposed collection names, sorted.
func (cc *CollectionsController) Names() []string {
	names := make([]string, 0, len(cc.stores))
	for name := range cc.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (cc *CollectionsController) RegisterRoutes(api *gin.RouterGroup) {
	group := api.Group("/collections")
	group.GET("", cc.ListCollections)
	group.GET("/:name", cc.List)
	group.POST("/:name", cc.Create)
	group.GET("/:name/:key", cc.Get)
	group.PUT("/:name/:key", cc.Put)
	group.DELETE("/:name/:key", cc.Delete)
}

func (cc *CollectionsController) store(c *gin.Context) (recordStore, bool) {
	name := c.Param("name")
	store, ok := cc.stores[name]
	if !ok {
		respondError(c, http.StatusNotFound, "unknown_collection",
			fmt.Errorf("%w: %s", database.ErrUnknownCollection, name))
		return nil, false
	}
	return store, true
}

func parseKey(c *gin.Context) (uint, bool) {
	key, err := strconv.ParseUint(c.Param("key"), 10, 32)
	if err != nil || key == 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", database.ErrInvalidKey)
		return 0, false
	}
	return uint(key), true
}

// ListCollections returns each exposed collection with its index names.
func (cc *CollectionsController) ListCollections(c *gin.Context) {
	out := make(map[string][]string, len(cc.stores))
	for name, store := range cc.stores {
		out[name] = store.indexes()
	}
	c.JSON(http.StatusOK, out)
}

// List returns every record, or with ?index=&value= the records whose
// indexed field equals value.
func (cc *CollectionsController) List(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}

	var (
		records any
		err     error
	)
	if index := c.Query("index"); index != "" {
		value, present := c.GetQuery("value")
		if !present {
			respondBadRequest(c, "value is required with index")
			return
		}
		records, err = store.byIndex(c.Request.Context(), index, value)
	} else {
		records, err = store.list(c.Request.Context())
	}
	if err != nil {
		respondServiceError(c, err, "list "+c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, records)
}

func (cc *CollectionsController) Get(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	key, ok := parseKey(c)
	if !ok {
		return
	}

	rec, found, err := store.get(c.Request.Context(), key)
	if err != nil {
		respondServiceError(c, err, "get "+c.Param("name"))
		return
	}
	if !found {
		respondNotFound(c, "record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create adds a record. Taken keys or unique values answer 409.
func (cc *CollectionsController) Create(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "failed to read body")
		return
	}

	rec, err := store.add(c.Request.Context(), body)
	if err != nil {
		respondServiceError(c, err, "add "+c.Param("name"))
		return
	}
	respondCreated(c, rec)
}

// Put inserts or replaces the record under key.
func (cc *CollectionsController) Put(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	key, ok := parseKey(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondBadRequest(c, "failed to read body")
		return
	}

	rec, err := store.put(c.Request.Context(), key, body)
	if err != nil {
		respondServiceError(c, err, "put "+c.Param("name"))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Delete removes the record under key. Missing keys succeed.
func (cc *CollectionsController) Delete(c *gin.Context) {
	store, ok := cc.store(c)
	if !ok {
		return
	}
	key, ok := parseKey(c)
	if !ok {
		return
	}

	if err := store.remove(c.Request.Context(), key); err != nil {
		respondServiceError(c, err, "delete "+c.Param("name"))
		return
	}
	respondSuccess(c, "deleted")
}

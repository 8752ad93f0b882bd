package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"apiworkbench/models"
)

const (
	foldersCollection      = "folders"
	requestsCollection     = "requests"
	environmentsCollection = "environments"
	variablesCollection    = "variables"
	historyCollection      = "history"
	countersCollection     = "counters"
)

// MongoStore keeps each entity in its own collection. Integer ids come from
// a counters collection so that every backend exposes the same id space.
// Transactions need a replica set or sharded cluster.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	inTx   bool
}

func NewMongoStore(client *mongo.Client, databaseName string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(databaseName)}
}

func (s *MongoStore) Folders() FolderRepository           { return mongoFolders{s} }
func (s *MongoStore) Requests() RequestRepository         { return mongoRequests{s} }
func (s *MongoStore) Environments() EnvironmentRepository { return mongoEnvironments{s} }
func (s *MongoStore) Variables() VariableRepository       { return mongoVariables{s} }
func (s *MongoStore) History() HistoryRepository          { return mongoHistory{s} }

func (s *MongoStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txStore := &MongoStore{client: s.client, db: s.db, inTx: true}
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx, txStore)
	})
	return err
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	names := []string{foldersCollection, requestsCollection, environmentsCollection, variablesCollection, historyCollection, countersCollection}
	for _, name := range names {
		if slices.Contains(existing, name) {
			continue
		}
		if err := s.db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}

	indexes := map[string][]mongo.IndexModel{
		foldersCollection: {{
			Keys:    bson.D{{Key: "parent_folder_id", Value: 1}, {Key: "sort_order", Value: 1}},
			Options: options.Index().SetName("parent_sort_index"),
		}},
		requestsCollection: {{
			Keys:    bson.D{{Key: "folder_id", Value: 1}, {Key: "sort_order", Value: 1}},
			Options: options.Index().SetName("folder_sort_index"),
		}},
		variablesCollection: {{
			Keys:    bson.D{{Key: "environment_id", Value: 1}},
			Options: options.Index().SetName("environment_index"),
		}},
		historyCollection: {
			{
				Keys:    bson.D{{Key: "executed_at", Value: -1}, {Key: "_id", Value: -1}},
				Options: options.Index().SetName("executed_at_desc_index"),
			},
			{
				Keys:    bson.D{{Key: "request_id", Value: 1}},
				Options: options.Index().SetName("request_index"),
			},
		},
	}
	for collection, specs := range indexes {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", collection, err)
		}
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) nextID(ctx context.Context, collection string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": collection},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for %s: %w", collection, err)
	}
	return counter.Seq, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOneOptions) (*T, error) {
	out := new(T)
	if err := coll.FindOne(ctx, filter, opts...).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func findMany[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func replaceByID(ctx context.Context, coll *mongo.Collection, id int64, doc any) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, id int64) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteMany(ctx context.Context, coll *mongo.Collection, filter any) (int64, error) {
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

var bySortOrder = bson.D{{Key: "sort_order", Value: 1}, {Key: "_id", Value: 1}}

// refFilter matches documents whose field equals ref; nil matches null or missing.
func refFilter(field string, ref *int64) bson.M {
	if ref == nil {
		return bson.M{field: nil}
	}
	return bson.M{field: *ref}
}

// ========== Folders ==========

type mongoFolders struct{ s *MongoStore }

func (r mongoFolders) coll() *mongo.Collection { return r.s.db.Collection(foldersCollection) }

func (r mongoFolders) Get(ctx context.Context, id int64) (*models.Folder, error) {
	return findOne[models.Folder](ctx, r.coll(), bson.M{"_id": id})
}

func (r mongoFolders) List(ctx context.Context) ([]models.Folder, error) {
	return findMany[models.Folder](ctx, r.coll(), bson.M{}, options.Find().SetSort(bySortOrder))
}

func (r mongoFolders) ListChildren(ctx context.Context, parentID *int64) ([]models.Folder, error) {
	return findMany[models.Folder](ctx, r.coll(), refFilter("parent_folder_id", parentID), options.Find().SetSort(bySortOrder))
}

func (r mongoFolders) MaxSortOrder(ctx context.Context, parentID *int64) (int, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sort_order", Value: -1}})
	folder, err := findOne[models.Folder](ctx, r.coll(), refFilter("parent_folder_id", parentID), opts)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return folder.SortOrder, true, nil
}

func (r mongoFolders) Create(ctx context.Context, folder *models.Folder) error {
	id, err := r.s.nextID(ctx, foldersCollection)
	if err != nil {
		return err
	}
	folder.ID = id
	_, err = r.coll().InsertOne(ctx, folder)
	return err
}

func (r mongoFolders) Update(ctx context.Context, folder *models.Folder) error {
	return replaceByID(ctx, r.coll(), folder.ID, folder)
}

func (r mongoFolders) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return deleteMany(ctx, r.coll(), bson.M{"_id": bson.M{"$in": ids}})
}

// ========== Requests ==========

type mongoRequests struct{ s *MongoStore }

func (r mongoRequests) coll() *mongo.Collection { return r.s.db.Collection(requestsCollection) }

func (r mongoRequests) Get(ctx context.Context, id int64) (*models.Request, error) {
	return findOne[models.Request](ctx, r.coll(), bson.M{"_id": id})
}

func (r mongoRequests) List(ctx context.Context) ([]models.Request, error) {
	return findMany[models.Request](ctx, r.coll(), bson.M{}, options.Find().SetSort(bySortOrder))
}

func (r mongoRequests) ListByFolder(ctx context.Context, folderID *int64) ([]models.Request, error) {
	return findMany[models.Request](ctx, r.coll(), refFilter("folder_id", folderID), options.Find().SetSort(bySortOrder))
}

func (r mongoRequests) Create(ctx context.Context, request *models.Request) error {
	id, err := r.s.nextID(ctx, requestsCollection)
	if err != nil {
		return err
	}
	request.ID = id
	_, err = r.coll().InsertOne(ctx, request)
	return err
}

func (r mongoRequests) Update(ctx context.Context, request *models.Request) error {
	return replaceByID(ctx, r.coll(), request.ID, request)
}

func (r mongoRequests) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.coll(), id)
}

func (r mongoRequests) DeleteByFolders(ctx context.Context, folderIDs []int64) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}
	return deleteMany(ctx, r.coll(), bson.M{"folder_id": bson.M{"$in": folderIDs}})
}

// ========== Environments ==========

type mongoEnvironments struct{ s *MongoStore }

func (r mongoEnvironments) coll() *mongo.Collection { return r.s.db.Collection(environmentsCollection) }

func (r mongoEnvironments) Get(ctx context.Context, id int64) (*models.Environment, error) {
	return findOne[models.Environment](ctx, r.coll(), bson.M{"_id": id})
}

func (r mongoEnvironments) List(ctx context.Context) ([]models.Environment, error) {
	return findMany[models.Environment](ctx, r.coll(), bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r mongoEnvironments) GetActive(ctx context.Context) (*models.Environment, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findOne[models.Environment](ctx, r.coll(), bson.M{"is_active": true}, opts)
}

func (r mongoEnvironments) Create(ctx context.Context, env *models.Environment) error {
	id, err := r.s.nextID(ctx, environmentsCollection)
	if err != nil {
		return err
	}
	env.ID = id
	_, err = r.coll().InsertOne(ctx, env)
	return err
}

func (r mongoEnvironments) Update(ctx context.Context, env *models.Environment) error {
	return replaceByID(ctx, r.coll(), env.ID, env)
}

func (r mongoEnvironments) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.coll(), id)
}

func (r mongoEnvironments) DeactivateAll(ctx context.Context) error {
	_, err := r.coll().UpdateMany(ctx,
		bson.M{"is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	return err
}

// ========== Variables ==========

type mongoVariables struct{ s *MongoStore }

func (r mongoVariables) coll() *mongo.Collection { return r.s.db.Collection(variablesCollection) }

func (r mongoVariables) Get(ctx context.Context, id int64) (*models.Variable, error) {
	return findOne[models.Variable](ctx, r.coll(), bson.M{"_id": id})
}

func (r mongoVariables) ListByEnvironment(ctx context.Context, environmentID int64) ([]models.Variable, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findMany[models.Variable](ctx, r.coll(), bson.M{"environment_id": environmentID}, opts)
}

func (r mongoVariables) Create(ctx context.Context, variable *models.Variable) error {
	id, err := r.s.nextID(ctx, variablesCollection)
	if err != nil {
		return err
	}
	variable.ID = id
	_, err = r.coll().InsertOne(ctx, variable)
	return err
}

func (r mongoVariables) Update(ctx context.Context, variable *models.Variable) error {
	return replaceByID(ctx, r.coll(), variable.ID, variable)
}

func (r mongoVariables) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.coll(), id)
}

func (r mongoVariables) DeleteByEnvironment(ctx context.Context, environmentID int64) (int64, error) {
	return deleteMany(ctx, r.coll(), bson.M{"environment_id": environmentID})
}

// ========== History ==========

type mongoHistory struct{ s *MongoStore }

func (r mongoHistory) coll() *mongo.Collection { return r.s.db.Collection(historyCollection) }

func (r mongoHistory) Get(ctx context.Context, id int64) (*models.History, error) {
	return findOne[models.History](ctx, r.coll(), bson.M{"_id": id})
}

func (r mongoHistory) List(ctx context.Context, offset, limit int) ([]models.History, int64, error) {
	total, err := r.coll().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "executed_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	entries, err := findMany[models.History](ctx, r.coll(), bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	if entries == nil {
		entries = []models.History{}
	}
	return entries, total, nil
}

func (r mongoHistory) Create(ctx context.Context, entry *models.History) error {
	id, err := r.s.nextID(ctx, historyCollection)
	if err != nil {
		return err
	}
	entry.ID = id
	_, err = r.coll().InsertOne(ctx, entry)
	return err
}

func (r mongoHistory) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.coll(), id)
}

func (r mongoHistory) DeleteAll(ctx context.Context) (int64, error) {
	return deleteMany(ctx, r.coll(), bson.M{})
}

func (r mongoHistory) ClearRequestRef(ctx context.Context, requestID int64) error {
	_, err := r.coll().UpdateMany(ctx,
		bson.M{"request_id": requestID},
		bson.M{"$set": bson.M{"request_id": nil}},
	)
	return err
}

func (r mongoHistory) ListBefore(ctx context.Context, cutoff time.Time) ([]models.History, error) {
	opts := options.Find().SetSort(bson.D{{Key: "executed_at", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[models.History](ctx, r.coll(), bson.M{"executed_at": bson.M{"$lt": cutoff}}, opts)
}

func (r mongoHistory) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return deleteMany(ctx, r.coll(), bson.M{"executed_at": bson.M{"$lt": cutoff}})
}

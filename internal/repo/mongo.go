package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskhub/internal/model"
)

const (
	usersCollection           = "users"
	tasksCollection           = "tasks"
	idempotencyKeysCollection = "idempotency_keys"
)

type mongoUser struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// mongoTask mirrors the tasks table. SortKey keeps newest-first ordering
// stable below BSON's millisecond date resolution.
type mongoTask struct {
	ID           string     `bson:"_id"`
	Title        string     `bson:"title"`
	Description  string     `bson:"description"`
	DueDate      *time.Time `bson:"dueDate,omitempty"`
	Priority     string     `bson:"priority"`
	Status       string     `bson:"status"`
	CreatorID    string     `bson:"creatorId"`
	AssignedToID *string    `bson:"assignedToId,omitempty"`
	Version      int        `bson:"version"`
	SortKey      int64      `bson:"sortKey"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

func (d mongoTask) toModel() model.Task {
	return model.Task{
		ID:           d.ID,
		Title:        d.Title,
		Description:  d.Description,
		DueDate:      d.DueDate,
		Priority:     model.Priority(d.Priority),
		Status:       model.Status(d.Status),
		CreatorID:    d.CreatorID,
		AssignedToID: d.AssignedToID,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// EnsureMongoIndexes creates the unique email index and the owner lookup
// indexes. It is safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = db.Collection(tasksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "creatorId", Value: 1}, {Key: "sortKey", Value: -1}}},
		{Keys: bson.D{{Key: "assignedToId", Value: 1}, {Key: "sortKey", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("tasks indexes: %w", err)
	}
	return nil
}

type MongoUserRepo struct {
	users *mongo.Collection
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{users: db.Collection(usersCollection)}
}

func (r *MongoUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	doc := mongoUser{
		ID:           uuid.NewString(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		return u, mapMongoError(err)
	}

	u.ID = doc.ID
	u.CreatedAt = doc.CreatedAt
	return u, nil
}

func (r *MongoUserRepo) Get(ctx context.Context, id string) (model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (model.User, error) {
	var doc mongoUser
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrorNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	return model.User{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

type MongoTaskRepo struct {
	tasks  *mongo.Collection
	users  *mongo.Collection
	keys   *mongo.Collection
	logger *zap.Logger
}

func NewMongoTaskRepo(db *mongo.Database, logger *zap.Logger) *MongoTaskRepo {
	return &MongoTaskRepo{
		tasks:  db.Collection(tasksCollection),
		users:  db.Collection(usersCollection),
		keys:   db.Collection(idempotencyKeysCollection),
		logger: logger,
	}
}

func (r *MongoTaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.AssignedToID != nil {
		if err := r.checkUser(ctx, *t.AssignedToID); err != nil {
			return t, err
		}
	}

	now := time.Now().UTC()
	doc := mongoTask{
		ID:           uuid.NewString(),
		Title:        t.Title,
		Description:  t.Description,
		DueDate:      t.DueDate,
		Priority:     string(t.Priority),
		Status:       string(t.Status),
		CreatorID:    t.CreatorID,
		AssignedToID: t.AssignedToID,
		Version:      1,
		SortKey:      now.UnixNano(),
		CreatedAt:    now.Truncate(time.Millisecond),
		UpdatedAt:    now.Truncate(time.Millisecond),
	}
	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		return t, mapMongoError(err)
	}
	return r.Get(ctx, doc.ID)
}

func (r *MongoTaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	var doc mongoTask
	err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, err
	}

	tasks, err := r.expand(ctx, []mongoTask{doc})
	if err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

func (r *MongoTaskRepo) ListForUser(ctx context.Context, userID string) ([]model.Task, error) {
	cur, err := r.tasks.Find(ctx, ownerFilter(userID),
		options.Find().SetSort(bson.D{{Key: "sortKey", Value: -1}}))
	if err != nil {
		return nil, err
	}

	var docs []mongoTask
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return r.expand(ctx, docs)
}

func (r *MongoTaskRepo) Update(ctx context.Context, id string, p model.TaskPatch) (model.Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC().Truncate(time.Millisecond)}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	if p.Priority != nil {
		set["priority"] = string(*p.Priority)
	}
	if p.Status != nil {
		set["status"] = string(*p.Status)
	}

	update := bson.M{"$set": set, "$inc": bson.M{"version": 1}}
	if p.AssignedToID != nil {
		if *p.AssignedToID == "" {
			update["$unset"] = bson.M{"assignedToId": ""}
		} else {
			if err := r.checkUser(ctx, *p.AssignedToID); err != nil {
				return model.Task{}, err
			}
			set["assignedToId"] = *p.AssignedToID
		}
	}

	filter := bson.M{"_id": id}
	if p.Version != nil {
		filter["version"] = *p.Version
	}

	var doc mongoTask
	err := r.tasks.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if p.Version != nil {
			if n, countErr := r.tasks.CountDocuments(ctx, bson.M{"_id": id}); countErr == nil && n > 0 {
				return model.Task{}, ErrorConflict
			}
		}
		return model.Task{}, ErrorNotFound
	}
	if err != nil {
		return model.Task{}, mapMongoError(err)
	}

	tasks, err := r.expand(ctx, []mongoTask{doc})
	if err != nil {
		return model.Task{}, err
	}
	return tasks[0], nil
}

func (r *MongoTaskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.tasks.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrorNotFound
	}

	// Задача уже удалена, поэтому ошибка очистки ключей только логируется
	if _, err := r.keys.DeleteMany(ctx, bson.M{"taskId": id}); err != nil {
		r.logger.Warn("failed to remove idempotency keys of deleted task", zap.String("task_id", id), zap.Error(err))
	}
	return nil
}

func (r *MongoTaskRepo) SaveIdempotencyKey(ctx context.Context, key, userID, taskID string) error {
	_, err := r.keys.InsertOne(ctx, bson.D{
		{Key: "_id", Value: idempotencyID(key, userID)},
		{Key: "taskId", Value: taskID},
		{Key: "createdAt", Value: time.Now().UTC()},
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (r *MongoTaskRepo) GetIdempotencyKey(ctx context.Context, key, userID string) (string, error) {
	var doc struct {
		TaskID string `bson:"taskId"`
	}
	err := r.keys.FindOne(ctx, bson.D{{Key: "_id", Value: idempotencyID(key, userID)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrorNotFound
	}
	return doc.TaskID, err
}

func (r *MongoTaskRepo) GetStats(ctx context.Context, userID string) (model.TaskStats, error) {
	stats := newStats()

	cur, err := r.tasks.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: ownerFilter(userID)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return stats, err
	}

	var rows []struct {
		Status string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return stats, err
	}
	for _, row := range rows {
		stats.ByStatus[model.Status(row.Status)] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}

// expand resolves creator and assignee references with one $in lookup.
func (r *MongoTaskRepo) expand(ctx context.Context, docs []mongoTask) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(docs))
	if len(docs) == 0 {
		return tasks, nil
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		for _, id := range []*string{&d.CreatorID, d.AssignedToID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}

	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"passwordHash": 0}))
	if err != nil {
		return nil, err
	}
	var users []mongoUser
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}

	refs := make(map[string]model.UserRef, len(users))
	for _, u := range users {
		refs[u.ID] = model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	}

	for _, d := range docs {
		t := d.toModel()
		if ref, ok := refs[t.CreatorID]; ok {
			t.Creator = &ref
		}
		if t.AssignedToID != nil {
			if ref, ok := refs[*t.AssignedToID]; ok {
				t.AssignedTo = &ref
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (r *MongoTaskRepo) checkUser(ctx context.Context, id string) error {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrorInvalidReference
	}
	return nil
}

func ownerFilter(userID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"creatorId": userID},
		bson.M{"assignedToId": userID},
	}}
}

func idempotencyID(key, userID string) bson.D {
	return bson.D{{Key: "key", Value: key}, {Key: "userId", Value: userID}}
}

func mapMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrorConflict
	}
	return err
}

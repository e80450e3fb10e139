package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
)

type mongoStore struct {
	client    *mongo.Client
	users     *mongo.Collection
	forms     *mongo.Collection
	responses *mongo.Collection
}

type userDoc struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	FirstName    string        `bson:"firstName"`
	LastName     string        `bson:"lastName"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password"`
	CreatedAt    time.Time     `bson:"createdAt"`
}

type formDoc struct {
	ID        bson.ObjectID    `bson:"_id,omitempty"`
	Title     string           `bson:"title"`
	Questions []model.Question `bson:"questions"`
	CreatedBy bson.ObjectID    `bson:"createdBy"`
	CreatedAt time.Time        `bson:"createdAt"`
}

type responseDoc struct {
	ID        bson.ObjectID  `bson:"_id,omitempty"`
	Form      bson.ObjectID  `bson:"form"`
	Answers   []model.Answer `bson:"answers"`
	CreatedAt time.Time      `bson:"createdAt"`
}

// OpenMongo connects to the deployment at uri and prepares the collections
// of database name.
func OpenMongo(ctx context.Context, uri, name string) (Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(time.Minute).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}

	db := client.Database(name)
	s := &mongoStore{
		client:    client,
		users:     db.Collection("users"),
		forms:     db.Collection("forms"),
		responses: db.Collection("formresponses"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	log.WithFields(log.Fields{"database": name}).Info("db.mongo: connected")
	return s, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "index users.email")
	}
	_, err = s.forms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdBy", Value: 1}},
	})
	if err != nil {
		return errors.Wrap(err, "index forms.createdBy")
	}
	_, err = s.responses.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "form", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return errors.Wrap(err, "index formresponses.form")
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// objectID parses a hex id. Malformed ids cannot match any document, so
// they are reported as ErrNotFound.
func objectID(hex string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return id, ErrNotFound
	}
	return id, nil
}

func (s *mongoStore) CreateUser(ctx context.Context, u *model.User) error {
	doc := userDoc{
		ID:           bson.NewObjectID(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	_, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	u.ID = doc.ID.Hex()
	return nil
}

func (s *mongoStore) findUser(ctx context.Context, filter bson.M) (model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "find user")
	}
	return model.User{
		ID:           doc.ID.Hex(),
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (s *mongoStore) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *mongoStore) FindUserByID(ctx context.Context, id string) (model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.User{}, err
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (doc formDoc) model() model.Form {
	questions := doc.Questions
	if questions == nil {
		questions = []model.Question{}
	}
	for i := range questions {
		if questions[i].Options == nil {
			questions[i].Options = []model.Option{}
		}
	}
	return model.Form{
		ID:        doc.ID.Hex(),
		Title:     doc.Title,
		Questions: questions,
		CreatedBy: doc.CreatedBy.Hex(),
		CreatedAt: doc.CreatedAt,
	}
}

func (s *mongoStore) CreateForm(ctx context.Context, f *model.Form) error {
	owner, err := objectID(f.CreatedBy)
	if err != nil {
		return err
	}
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": owner})
	if err != nil {
		return errors.Wrap(err, "count owner")
	}
	if n < 1 {
		return ErrNotFound
	}

	doc := formDoc{
		ID:        bson.NewObjectID(),
		Title:     f.Title,
		Questions: f.Questions,
		CreatedBy: owner,
		CreatedAt: f.CreatedAt,
	}
	if _, err := s.forms.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert form")
	}

	f.ID = doc.ID.Hex()
	return nil
}

func (s *mongoStore) ListFormsByOwner(ctx context.Context, owner string) ([]model.Form, error) {
	oid, err := objectID(owner)
	if err != nil {
		return []model.Form{}, nil
	}

	cur, err := s.forms.Find(ctx, bson.M{"createdBy": oid}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find forms")
	}
	defer cur.Close(ctx)

	forms := []model.Form{}
	for cur.Next(ctx) {
		var doc formDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode form")
		}
		forms = append(forms, doc.model())
	}
	return forms, errors.Wrap(cur.Err(), "iterate forms")
}

func (s *mongoStore) findForm(ctx context.Context, filter bson.M) (model.Form, error) {
	var doc formDoc
	err := s.forms.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Form{}, ErrNotFound
	}
	if err != nil {
		return model.Form{}, errors.Wrap(err, "find form")
	}
	return doc.model(), nil
}

func (s *mongoStore) FindForm(ctx context.Context, id string) (model.Form, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.Form{}, err
	}
	return s.findForm(ctx, bson.M{"_id": oid})
}

func (s *mongoStore) FindOwnedForm(ctx context.Context, id, owner string) (model.Form, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.Form{}, err
	}
	ownerID, err := objectID(owner)
	if err != nil {
		return model.Form{}, err
	}
	return s.findForm(ctx, bson.M{"_id": oid, "createdBy": ownerID})
}

func (s *mongoStore) DeleteOwnedForm(ctx context.Context, id, owner string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	ownerID, err := objectID(owner)
	if err != nil {
		return err
	}

	// check ownership before touching responses
	n, err := s.forms.CountDocuments(ctx, bson.M{"_id": oid, "createdBy": ownerID})
	if err != nil {
		return errors.Wrap(err, "count form")
	}
	if n < 1 {
		return ErrNotFound
	}

	if _, err := s.responses.DeleteMany(ctx, bson.M{"form": oid}); err != nil {
		return errors.Wrap(err, "delete responses")
	}
	res, err := s.forms.DeleteOne(ctx, bson.M{"_id": oid, "createdBy": ownerID})
	if err != nil {
		return errors.Wrap(err, "delete form")
	}
	if res.DeletedCount < 1 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) CreateResponse(ctx context.Context, r *model.FormResponse) error {
	formID, err := objectID(r.FormID)
	if err != nil {
		return err
	}

	doc := responseDoc{
		ID:        bson.NewObjectID(),
		Form:      formID,
		Answers:   r.Answers,
		CreatedAt: r.CreatedAt,
	}
	if _, err := s.responses.InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert response")
	}

	r.ID = doc.ID.Hex()
	return nil
}

func (s *mongoStore) ListResponses(ctx context.Context, formID string) ([]model.FormResponse, error) {
	oid, err := objectID(formID)
	if err != nil {
		return []model.FormResponse{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.responses.Find(ctx, bson.M{"form": oid}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find responses")
	}
	defer cur.Close(ctx)

	var docs []responseDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode responses")
	}

	responses := make([]model.FormResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, model.FormResponse{
			ID:        doc.ID.Hex(),
			FormID:    doc.Form.Hex(),
			Answers:   doc.Answers,
			CreatedAt: doc.CreatedAt,
		})
	}
	return responses, nil
}

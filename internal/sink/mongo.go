// Copyright 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/magnetar-sync/magnetar/internal/config"
	"github.com/magnetar-sync/magnetar/internal/informer"
	"github.com/magnetar-sync/magnetar/internal/utils"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// MongoSink keeps one collection per dataset. Documents carry the object
// fields at the top level with the cache key as _id, so the configured
// indexes can address dotted object paths directly.
type MongoSink struct {
	client *mongo.Client
}

func (m *MongoSink) Initialize() {
	var err error
	m.client, err = mongo.Connect(context.Background(), options.Client().ApplyURI(config.Current.Sink.Mongo.Uri))
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create mongo client!")
	}

	if err := m.client.Ping(context.Background(), nil); err != nil {
		log.Fatal().Err(err).Msg("Could not reach mongodb!")
	}
}

func (m *MongoSink) InitializeDataset(resourceConfig *config.Resource) {
	for _, index := range resourceConfig.MongoIndexes {
		var model = index.ToIndexModel()
		var collection = m.getCollection(resourceConfig.GetCacheName())
		_, err := collection.Indexes().CreateOne(context.Background(), model)
		if err != nil {
			var resource = resourceConfig.GetGroupVersionResource()
			log.Warn().Fields(utils.CreateFieldForResource(&resource)).Err(err).Msg("Could not create index in MongoDB")
		}
	}
}

func (m *MongoSink) Apply(dataset string, obj *unstructured.Unstructured) error {
	var key = informer.KeyOf(obj)

	var document = bson.M{"_id": key}
	for field, value := range obj.Object {
		document[field] = value
	}

	var filter = bson.M{"_id": key}
	_, err := m.getCollection(dataset).ReplaceOne(context.Background(), filter, document, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not write resource: %w", err)
	}

	return nil
}

func (m *MongoSink) Drop(dataset string, obj *unstructured.Unstructured) error {
	var filter = bson.M{"_id": informer.KeyOf(obj)}

	_, err := m.getCollection(dataset).DeleteOne(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("could not delete resource: %w", err)
	}

	return nil
}

func (m *MongoSink) Read(dataset string, key string) (*unstructured.Unstructured, error) {
	var result = m.getCollection(dataset).FindOne(context.Background(), bson.M{"_id": key})

	var document bson.M
	if err := result.Decode(&document); errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrResourceNotFound
	} else if err != nil {
		return nil, fmt.Errorf("could not read resource: %w", err)
	}

	return documentToObject(document)
}

func (m *MongoSink) List(dataset string, fieldSelector string, limit int64) ([]unstructured.Unstructured, error) {
	filter, err := m.parseFieldSelector(fieldSelector)
	if err != nil {
		return nil, err
	}

	var findOptions = options.Find()
	if limit > 0 {
		findOptions.SetLimit(limit)
	}

	cursor, err := m.getCollection(dataset).Find(context.Background(), filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("could not list resources: %w", err)
	}
	defer func() { _ = cursor.Close(context.Background()) }()

	var objects = make([]unstructured.Unstructured, 0)
	for cursor.Next(context.Background()) {
		var document bson.M
		if err := cursor.Decode(&document); err != nil {
			return nil, fmt.Errorf("could not decode resource: %w", err)
		}

		obj, err := documentToObject(document)
		if err != nil {
			return nil, err
		}

		objects = append(objects, *obj)
	}

	return objects, cursor.Err()
}

func (m *MongoSink) Keys(dataset string) ([]string, error) {
	values, err := m.getCollection(dataset).Distinct(context.Background(), "_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("could not list keys: %w", err)
	}

	var keys = make([]string, 0, len(values))
	for _, value := range values {
		keys = append(keys, fmt.Sprint(value))
	}

	return keys, nil
}

func (m *MongoSink) Count(dataset string) (int, error) {
	count, err := m.getCollection(dataset).CountDocuments(context.Background(), bson.M{})
	if err != nil {
		return 0, fmt.Errorf("could not count resources: %w", err)
	}

	return int(count), nil
}

func (m *MongoSink) Connected() bool {
	return m.client != nil && m.client.Ping(context.Background(), nil) == nil
}

func (m *MongoSink) Shutdown() {
	_ = m.client.Disconnect(context.TODO())
}

func (m *MongoSink) getCollection(dataset string) *mongo.Collection {
	return m.client.Database(config.Current.Sink.Mongo.Database).Collection(dataset)
}

// parseFieldSelector translates "path=value,path2=value2" into a filter with
// dotted document paths.
func (m *MongoSink) parseFieldSelector(fieldSelector string) (bson.M, error) {
	var filter = bson.M{}
	if fieldSelector == "" {
		return filter, nil
	}

	for _, term := range strings.Split(fieldSelector, ",") {
		path, value, ok := strings.Cut(term, "=")
		if !ok {
			return nil, fmt.Errorf("malformed field selector term %q", term)
		}
		filter[path] = value
	}

	return filter, nil
}

func documentToObject(document bson.M) (*unstructured.Unstructured, error) {
	delete(document, "_id")

	jsonBytes, err := bson.MarshalExtJSON(document, false, false)
	if err != nil {
		return nil, fmt.Errorf("could not marshal document: %w", err)
	}

	var obj = new(unstructured.Unstructured)
	if err := json.Unmarshal(jsonBytes, &obj.Object); err != nil {
		return nil, fmt.Errorf("could not unmarshal document: %w", err)
	}

	return obj, nil
}

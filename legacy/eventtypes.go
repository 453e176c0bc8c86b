// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package legacy

import "strings"

// Canonical event types produced by the converters in this package.
const (
	PubSubMessagePublished = "com.google.cloud.pubsub.topic.publish.v0"
	StorageObjectFinalized = "com.google.cloud.storage.object.finalize.v0"
	FirestoreDocumentWrite = "com.google.cloud.firestore.document.write.v0"
)

// Default services for each event family. Used whenever a legacy event
// carries its resource as a bare name rather than a structured resource.
const (
	pubsubService        = "pubsub.googleapis.com"
	storageService       = "storage.googleapis.com"
	firestoreService     = "firestore.googleapis.com"
	firebaseAuthService  = "firebaseauth.googleapis.com"
	firebaseDBService    = "firebasedatabase.googleapis.com"
	firebaseAnalytics    = "app-measurement.com"
	firebaseRemoteConfig = "firebaseremoteconfig.googleapis.com"
	firestoreTypePrefix  = "com.google.cloud.firestore.document."
	storageTypePrefix    = "com.google.cloud.storage.object."
	pubsubTypePrefix     = "com.google.cloud.pubsub.topic."
)

type eventType struct {
	canonical string
	service   string
}

var eventTypes = map[string]eventType{
	"google.pubsub.topic.publish":                     {PubSubMessagePublished, pubsubService},
	"providers/cloud.pubsub/eventTypes/topic.publish": {PubSubMessagePublished, pubsubService},

	"google.storage.object.finalize":                   {StorageObjectFinalized, storageService},
	"google.storage.object.delete":                     {"com.google.cloud.storage.object.delete.v0", storageService},
	"google.storage.object.archive":                    {"com.google.cloud.storage.object.archive.v0", storageService},
	"google.storage.object.metadataUpdate":             {"com.google.cloud.storage.object.metadataUpdate.v0", storageService},
	"providers/cloud.storage/eventTypes/object.change": {"com.google.cloud.storage.object.change.v0", storageService},

	"providers/cloud.firestore/eventTypes/document.write":  {FirestoreDocumentWrite, firestoreService},
	"providers/cloud.firestore/eventTypes/document.create": {"com.google.cloud.firestore.document.create.v0", firestoreService},
	"providers/cloud.firestore/eventTypes/document.update": {"com.google.cloud.firestore.document.update.v0", firestoreService},
	"providers/cloud.firestore/eventTypes/document.delete": {"com.google.cloud.firestore.document.delete.v0", firestoreService},

	"providers/firebase.auth/eventTypes/user.create": {"com.google.firebase.auth.user.create.v0", firebaseAuthService},
	"providers/firebase.auth/eventTypes/user.delete": {"com.google.firebase.auth.user.delete.v0", firebaseAuthService},

	"providers/google.firebase.database/eventTypes/ref.create": {"com.google.firebase.database.ref.create.v0", firebaseDBService},
	"providers/google.firebase.database/eventTypes/ref.write":  {"com.google.firebase.database.ref.write.v0", firebaseDBService},
	"providers/google.firebase.database/eventTypes/ref.update": {"com.google.firebase.database.ref.update.v0", firebaseDBService},
	"providers/google.firebase.database/eventTypes/ref.delete": {"com.google.firebase.database.ref.delete.v0", firebaseDBService},

	"providers/google.firebase.analytics/eventTypes/event.log": {"com.google.firebase.analytics.log.v0", firebaseAnalytics},

	"google.firebase.remoteconfig.update": {"com.google.firebase.remoteconfig.update.v0", firebaseRemoteConfig},
}

// EventTypes returns a copy of the fixed table mapping legacy event
// type strings to their canonical CloudEvent type.
func EventTypes() map[string]string {
	m := make(map[string]string, len(eventTypes))
	for legacyType, et := range eventTypes {
		m[legacyType] = et.canonical
	}
	return m
}

func isFirestore(canonical string) bool {
	return strings.HasPrefix(canonical, firestoreTypePrefix)
}

func isStorage(canonical string) bool {
	return strings.HasPrefix(canonical, storageTypePrefix)
}

func isPubSub(canonical string) bool {
	return strings.HasPrefix(canonical, pubsubTypePrefix)
}

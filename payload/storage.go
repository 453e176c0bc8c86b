// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package payload

import (
	"time"

	"github.com/z5labs/funcframework/formatter"
)

// StorageObject is the payload of Cloud Storage object events.
type StorageObject struct {
	Kind                    string              `json:"kind,omitempty"`
	ID                      string              `json:"id,omitempty"`
	SelfLink                string              `json:"selfLink,omitempty"`
	Name                    string              `json:"name,omitempty"`
	Bucket                  string              `json:"bucket,omitempty"`
	Generation              Int64String         `json:"generation,omitempty"`
	Metageneration          Int64String         `json:"metageneration,omitempty"`
	ContentType             string              `json:"contentType,omitempty"`
	TimeCreated             *time.Time          `json:"timeCreated,omitempty"`
	Updated                 *time.Time          `json:"updated,omitempty"`
	TimeDeleted             *time.Time          `json:"timeDeleted,omitempty"`
	TemporaryHold           bool                `json:"temporaryHold,omitempty"`
	EventBasedHold          bool                `json:"eventBasedHold,omitempty"`
	RetentionExpirationTime *time.Time          `json:"retentionExpirationTime,omitempty"`
	StorageClass            string              `json:"storageClass,omitempty"`
	TimeStorageClassUpdated *time.Time          `json:"timeStorageClassUpdated,omitempty"`
	Size                    Int64String         `json:"size,omitempty"`
	MD5Hash                 string              `json:"md5Hash,omitempty"`
	MediaLink               string              `json:"mediaLink,omitempty"`
	ContentEncoding         string              `json:"contentEncoding,omitempty"`
	ContentDisposition      string              `json:"contentDisposition,omitempty"`
	ContentLanguage         string              `json:"contentLanguage,omitempty"`
	CacheControl            string              `json:"cacheControl,omitempty"`
	Metadata                map[string]string   `json:"metadata,omitempty"`
	CRC32C                  string              `json:"crc32c,omitempty"`
	ComponentCount          int32               `json:"componentCount,omitempty"`
	Etag                    string              `json:"etag,omitempty"`
	CustomerEncryption      *CustomerEncryption `json:"customerEncryption,omitempty"`
	KMSKeyName              string              `json:"kmsKeyName,omitempty"`
}

// CustomerEncryption describes the customer-supplied key an object is
// encrypted with.
type CustomerEncryption struct {
	EncryptionAlgorithm string `json:"encryptionAlgorithm,omitempty"`
	KeySHA256           string `json:"keySha256,omitempty"`
}

// CloudEventFormatter implements the [formatter.Annotated] interface.
func (StorageObject) CloudEventFormatter() formatter.Formatter[StorageObject] {
	return formatter.JSON[StorageObject]()
}

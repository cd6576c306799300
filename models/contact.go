package models

import (
	"time"
)

// Contact is a single business-card entry inside an owner's contact list.
type Contact struct {
	ID        string    `bson:"id,omitempty" json:"id,omitempty" dynamodbav:"id,omitempty"`
	Name      string    `bson:"name" json:"name" dynamodbav:"name"`
	Surname   string    `bson:"surname" json:"surname" dynamodbav:"surname"`
	Phone     string    `bson:"phone" json:"phone" dynamodbav:"phone"`
	Email     string    `bson:"email" json:"email" dynamodbav:"email"`
	HowWeMet  string    `bson:"how_we_met" json:"howWeMet" dynamodbav:"how_we_met"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt" dynamodbav:"created_at"`
	Location  *Location `bson:"location,omitempty" json:"location,omitempty" dynamodbav:"location,omitempty"`
}

// ContactList is the per-owner document holding every contact in insertion order.
type ContactList struct {
	OwnerID   string    `bson:"_id" json:"ownerId" dynamodbav:"owner_id"`
	Contacts  []Contact `bson:"contact_list" json:"contactList" dynamodbav:"contact_list"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt" dynamodbav:"updated_at"`
}

// Location is the canonical geolocation attached to a contact.
type Location struct {
	Latitude    float64   `bson:"latitude" json:"latitude" dynamodbav:"latitude"`
	Longitude   float64   `bson:"longitude" json:"longitude" dynamodbav:"longitude"`
	City        string    `bson:"city" json:"city" dynamodbav:"city"`
	Region      string    `bson:"region" json:"region" dynamodbav:"region"`
	Country     string    `bson:"country" json:"country" dynamodbav:"country"`
	CountryCode string    `bson:"country_code" json:"countryCode" dynamodbav:"country_code"`
	Timezone    *string   `bson:"timezone" json:"timezone" dynamodbav:"timezone"`
	Provider    string    `bson:"provider" json:"provider" dynamodbav:"provider"`
	ResolvedAt  time.Time `bson:"resolved_at" json:"resolvedAt" dynamodbav:"resolved_at"`
}

// Append adds c to the end of the list and returns its positional index.
func (l *ContactList) Append(c Contact) int {
	l.Contacts = append(l.Contacts, c)
	return len(l.Contacts) - 1
}

// IndexOf returns the position of the contact with the given id, or -1.
func (l *ContactList) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range l.Contacts {
		if l.Contacts[i].ID == id {
			return i
		}
	}
	return -1
}

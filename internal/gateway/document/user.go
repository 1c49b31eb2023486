package document

import (
	"encoding/xml"

	"observe/internal/domain"
)

// UserDocument is the public view of an account. It never carries credentials.
type UserDocument struct {
	XMLName    xml.Name `xml:"user"`
	Login      string   `xml:"login"`
	FirstName  string   `xml:"firstName"`
	LastName   string   `xml:"lastName"`
	Email      string   `xml:"email"`
	Permission string   `xml:"permission"`
}

// UserList is a collection of accounts.
type UserList struct {
	XMLName xml.Name       `xml:"users"`
	Users   []UserDocument `xml:"user"`
}

// NewUser builds the public view of u.
func NewUser(u domain.User) UserDocument {
	return UserDocument{
		Login:      u.Login,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Permission: u.Permission,
	}
}

// NewUserList builds the public view of users, preserving order.
func NewUserList(users []domain.User) UserList {
	list := UserList{Users: make([]UserDocument, 0, len(users))}
	for _, u := range users {
		list.Users = append(list.Users, NewUser(u))
	}
	return list
}

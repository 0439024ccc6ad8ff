package services

import (
	"fmt"

	"blog/internal/models"
	"blog/internal/repositories"
)

// Operation names one action exposed over the API.
type Operation string

const (
	OpUserList     Operation = "user.list"
	OpUserCreate   Operation = "user.create"
	OpUserRetrieve Operation = "user.retrieve"
	OpUserUpdate   Operation = "user.update"
	OpLogin        Operation = "auth.login"
	OpLogout       Operation = "auth.logout"

	OpPostList          Operation = "post.list"
	OpPostCreate        Operation = "post.create"
	OpPostRetrieve      Operation = "post.retrieve"
	OpPostUpdate        Operation = "post.update"
	OpPostPartialUpdate Operation = "post.partial_update"
	OpPostDestroy       Operation = "post.destroy"
)

// Visibility maps the acting user to the records they may see.
type Visibility func(actor *models.User) repositories.Scope

// Policy describes what an operation demands of its caller.
type Policy struct {
	RequiresAuth bool
	Visibility   Visibility // nil for operations that touch no scoped resource
}

// superuserOverride lets superusers see every record and everyone else
// only their own.
func superuserOverride(actor *models.User) repositories.Scope {
	if actor.IsSuperuser {
		return repositories.All()
	}
	return repositories.OwnedBy(actor.ID)
}

// ownerOnly restricts everyone, superusers included, to their own records.
func ownerOnly(actor *models.User) repositories.Scope {
	return repositories.OwnedBy(actor.ID)
}

var policies = map[Operation]Policy{
	OpUserList:     {RequiresAuth: true, Visibility: superuserOverride},
	OpUserRetrieve: {RequiresAuth: true, Visibility: superuserOverride},
	OpUserUpdate:   {RequiresAuth: true, Visibility: superuserOverride},
	OpUserCreate:   {RequiresAuth: false},
	OpLogin:        {RequiresAuth: false},
	OpLogout:       {RequiresAuth: true},

	OpPostList:          {RequiresAuth: true, Visibility: ownerOnly},
	OpPostCreate:        {RequiresAuth: true, Visibility: ownerOnly},
	OpPostRetrieve:      {RequiresAuth: true, Visibility: ownerOnly},
	OpPostUpdate:        {RequiresAuth: true, Visibility: ownerOnly},
	OpPostPartialUpdate: {RequiresAuth: true, Visibility: ownerOnly},
	OpPostDestroy:       {RequiresAuth: true, Visibility: ownerOnly},
}

// PolicyFor returns the policy of op. It panics on an unknown operation,
// which can only be a programming error.
func PolicyFor(op Operation) Policy {
	p, ok := policies[op]
	if !ok {
		panic(fmt.Sprintf("services: no policy for operation %q", op))
	}
	return p
}

// authorize checks actor against op and returns the scope to query with.
func authorize(op Operation, actor *models.User) (repositories.Scope, error) {
	p := PolicyFor(op)
	if p.RequiresAuth && actor == nil {
		return repositories.Scope{}, ErrNoCredentials
	}
	if p.Visibility == nil || actor == nil {
		return repositories.Scope{}, nil
	}
	return p.Visibility(actor), nil
}

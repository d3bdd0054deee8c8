package pubsub

import "fmt"

// Event types published by the microblog services.
const (
	EventUserRegistered = "user.registered"
	EventPostCreated    = "post.created"
	EventFollowCreated  = "follow.created"
	EventFollowRemoved  = "follow.removed"
)

// Channel format: {entity}:{id}:{event}
//
//	"user:42:registered"  user 42 registered
//	"post:42:created"     user 42 authored a post
//	"follow:42:created"   user 42 gained a follower
//	"follow:42:removed"   user 42 lost a follower
func ChannelUserRegistered(userID string) string {
	return fmt.Sprintf("user:%s:registered", userID)
}

func ChannelPostCreated(authorID string) string {
	return fmt.Sprintf("post:%s:created", authorID)
}

func ChannelFollowCreated(followedID string) string {
	return fmt.Sprintf("follow:%s:created", followedID)
}

func ChannelFollowRemoved(followedID string) string {
	return fmt.Sprintf("follow:%s:removed", followedID)
}

// PatternEntity matches every channel for an entity, e.g. "post:*:created".
func PatternEntity(entity, event string) string {
	return fmt.Sprintf("%s:*:%s", entity, event)
}

package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_Complete(t *testing.T) {
	s := &Static{Response: "canned"}
	out, err := s.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "canned", out)

	s = &Static{Err: errors.New("down")}
	_, err = s.Complete(context.Background(), Request{})
	require.Error(t, err)
}

func TestStatic_Stream_Tokens(t *testing.T) {
	s := &Static{Tokens: []string{"a", "b"}}
	tokens, errs := s.Stream(context.Background(), Request{})

	var got []string
	for tok := range tokens {
		got = append(got, tok)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.NoError(t, <-errs)
}

func TestStatic_Stream_FallsBackToResponse(t *testing.T) {
	s := &Static{Response: "whole answer"}
	tokens, errs := s.Stream(context.Background(), Request{})

	var got []string
	for tok := range tokens {
		got = append(got, tok)
	}
	assert.Equal(t, []string{"whole answer"}, got)
	assert.NoError(t, <-errs)
}

func TestStatic_Stream_Error(t *testing.T) {
	s := &Static{Err: errors.New("down")}
	tokens, errs := s.Stream(context.Background(), Request{})
	for range tokens {
	}
	assert.Error(t, <-errs)
}

package parameters

import (
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewFromConfigString(t *testing.T) {
	params := NewFromConfigString("dueling, learning_rate=0.001,,head_activation=linear,expr=a=b")
	require.Equal(t, Params{
		"dueling":         "",
		"learning_rate":   "0.001",
		"head_activation": "linear",
		"expr":            "a=b",
	}, params)
}

func TestGetParamOr(t *testing.T) {
	params := NewFromConfigString("n=7,lr=0.5,flag,off=false,name=dueling,bad=x")

	n, err := GetParamOr(params, "n", 1)
	require.NoError(t, err)
	require.Equal(t, 7, n)

	lr, err := GetParamOr(params, "lr", float32(0.1))
	require.NoError(t, err)
	require.Equal(t, float32(0.5), lr)

	lr64, err := GetParamOr(params, "missing", 0.25)
	require.NoError(t, err)
	require.Equal(t, 0.25, lr64)

	flag, err := GetParamOr(params, "flag", false)
	require.NoError(t, err)
	require.True(t, flag)

	off, err := GetParamOr(params, "off", true)
	require.NoError(t, err)
	require.False(t, off)

	name, err := GetParamOr(params, "name", "")
	require.NoError(t, err)
	require.Equal(t, "dueling", name)

	_, err = GetParamOr(params, "bad", 3)
	require.Error(t, err)
	_, err = GetParamOr(params, "bad", true)
	require.Error(t, err)
}

func TestPopParamOrAndCheckAllUsed(t *testing.T) {
	params := NewFromConfigString("plain,learning_rate=0.01,typo=3")
	lr, err := PopParamOr(params, "learning_rate", 0.1)
	require.NoError(t, err)
	require.Equal(t, 0.01, lr)
	delete(params, "plain")
	require.ErrorContains(t, CheckAllUsed(params, "plain"), "typo")
	delete(params, "typo")
	require.NoError(t, CheckAllUsed(params, "plain"))
}

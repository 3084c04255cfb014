package rules

import (
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/minaorangina/maumau/deck"
)

// LuaMatcher lets a Lua script decide ordinary plays.
//
// The script must define check_card(uncovered, played) returning a boolean.
// It may define lost_point_factor(uncovered) returning a number.
// Cards are passed as tables with the fields suit, rank, code and points.
type LuaMatcher struct {
	mu     sync.Mutex
	state  *lua.LState
	check  *lua.LFunction
	factor *lua.LFunction
}

// NewLuaMatcher compiles script
func NewLuaMatcher(script string) (*LuaMatcher, error) {
	return newLuaMatcher(func(L *lua.LState) error { return L.DoString(script) })
}

// LoadLuaMatcher compiles the script at path
func LoadLuaMatcher(path string) (*LuaMatcher, error) {
	return newLuaMatcher(func(L *lua.LState) error { return L.DoFile(path) })
}

func newLuaMatcher(load func(*lua.LState) error) (*LuaMatcher, error) {
	L := lua.NewState()
	if err := load(L); err != nil {
		L.Close()
		return nil, &ScriptError{Reason: "cannot load script", Err: err}
	}

	check, ok := L.GetGlobal("check_card").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, &ScriptError{Reason: "check_card is not defined"}
	}
	factor, _ := L.GetGlobal("lost_point_factor").(*lua.LFunction)

	return &LuaMatcher{state: L, check: check, factor: factor}, nil
}

func (m *LuaMatcher) Match(uncovered, played deck.Card) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret, err := m.call(m.check, "check_card failed", uncovered, played)
	if err != nil {
		return false, err
	}
	return lua.LVAsBool(ret), nil
}

func (m *LuaMatcher) LostPointFactor(uncovered deck.Card) (int, error) {
	if m.factor == nil {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ret, err := m.call(m.factor, "lost_point_factor failed", uncovered)
	if err != nil {
		return 0, err
	}
	return int(lua.LVAsNumber(ret)), nil
}

func (m *LuaMatcher) call(fn *lua.LFunction, reason string, cards ...deck.Card) (lua.LValue, error) {
	args := make([]lua.LValue, 0, len(cards))
	for _, c := range cards {
		args = append(args, cardTable(m.state, c))
	}

	if err := m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, &ScriptError{Reason: reason, Err: err}
	}
	ret := m.state.Get(-1)
	m.state.Pop(1)
	return ret, nil
}

// Close releases the interpreter
func (m *LuaMatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Close()
}

func cardTable(L *lua.LState, c deck.Card) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("suit", lua.LString(c.Suit.String()))
	t.RawSetString("rank", lua.LString(c.Rank.String()))
	t.RawSetString("code", lua.LString(c.Code()))
	t.RawSetString("points", lua.LNumber(c.Points()))
	return t
}

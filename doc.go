/*
Package nfplayer renders audio described by scores.

Concept

A score is a graph of nodes. Leaves of the graph are connected to a
synthetic destination, and every render call pulls a quantum of samples
from destinations through the graph:

    file -> stretch -> gain -> destination

File nodes play decoded content within time windows, loops repeat parts
of their ancestors, stretch nodes change tempo and pitch, and gain nodes
apply automation. Node params are automated with Web Audio commands, for
example:

    g := score.NewGainNode(
        score.SetValueAtTime(0, instant.Zero),
        score.LinearRampToValueAtTime(1, instant.FromSeconds(2)),
    )

Rendering

Renderer is driven by its caller: either a device callback or a memory
render loop. Render calls never block on content loading. Scores are
loaded before they are enqueued and time changes prepare a new node
generation aside, swapping it in once all content is available:

    r := render.New(node.Info{
        SampleRate:  44100,
        QuantumSize: 512,
        Fetch:       decode.Fetcher(44100),
    })
    p := nfplayer.New(r)
    err := p.SetJSON(ctx, data)
    p.SetPlaying(true)
    quantum := r.Render()

Mutations

Params of running scores are changed with mutations. Mutations are
applied between quanta, so every quantum sees a consistent graph:

    err := p.EnqueueMutation(ctx, mutate.Push(graphID, nodeID, "gain",
        score.SetValueAtTime(0.5, instant.FromSeconds(10)),
    ))
*/
package nfplayer

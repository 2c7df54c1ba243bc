// Command heapctl boots the kernel heap on a simulated machine and exercises it.
package main

func main() {
	execute()
}
